package gateway

// Collection names one of the remote document collections.
type Collection string

// Known collections. Config is the optional cross-device bootstrap
// collection; the store never reads it.
const (
	Products   Collection = "products"
	Categories Collection = "categories"
	Settings   Collection = "settings"
	Config     Collection = "config"
)

// Collections lists the collections the store loads, in load order.
func Collections() []Collection {
	return []Collection{Products, Categories, Settings}
}

// Table returns the physical table backing the collection.
func (c Collection) Table() string {
	return "dm_" + string(c)
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Products, Categories, Settings, Config:
		return true
	}
	return false
}
