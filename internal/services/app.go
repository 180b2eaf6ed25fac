package services

// App bundles the storefront components so they can be built once in main
// and handed to the HTTP layer.
type App struct {
	Catalog  *Catalog
	Sessions *Sessions
	Ledger   *Ledger
	Reports  *Reports
	Gate     AdminGate
}
