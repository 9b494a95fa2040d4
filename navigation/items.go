package navigation

import "sync"

// Icon names a glyph from the client icon set
type Icon string

const (
	IconHome        Icon = "home"
	IconInfo        Icon = "info"
	IconShoppingBag Icon = "shopping-bag"
	IconPhone       Icon = "phone"
	IconPackage     Icon = "package"
	IconHeart       Icon = "heart"
	IconSettings    Icon = "settings"
	IconPlusCircle  Icon = "plus-circle"
	IconSun         Icon = "sun"
	IconMoon        Icon = "moon"
)

// Item is a single entry of the navigation bar
type Item struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
	Icon  Icon   `json:"icon"`
	Color string `json:"color"`
}

// Translator looks up a localized string for the active language
type Translator interface {
	T(key string) string
	Language() string
}

type entry struct {
	key   string
	path  string
	icon  Icon
	color string
}

var (
	publicEntries = []entry{
		{key: "home", path: "/", icon: IconHome, color: "blue"},
		{key: "about", path: "/about", icon: IconInfo, color: "green"},
		{key: "products", path: "/products", icon: IconShoppingBag, color: "purple"},
		{key: "contact", path: "/contact", icon: IconPhone, color: "pink"},
	}
	customerEntries = []entry{
		{key: "myOrders", path: "/orders", icon: IconPackage, color: "orange"},
		{key: "favorites", path: "/favorites", icon: IconHeart, color: "red"},
	}
	adminEntries = []entry{
		{key: "admin", path: "/admin", icon: IconSettings, color: "yellow"},
		{key: "addProduct", path: "/admin/add", icon: IconPlusCircle, color: "teal"},
	}
)

// Build returns the ordered navigation items for role. The four public items
// always come first; role specific items follow. Each call returns a new
// slice that the caller owns
func Build(role Role, t Translator) []Item {
	var extra []entry
	switch role {
	case Regular:
		extra = customerEntries
	case Admin:
		extra = adminEntries
	}
	items := make([]Item, 0, len(publicEntries)+len(extra))
	for _, group := range [][]entry{publicEntries, extra} {
		for _, e := range group {
			items = append(items, Item{
				Key:   e.key,
				Label: t.T(e.key),
				Path:  e.path,
				Icon:  e.icon,
				Color: e.color,
			})
		}
	}
	return items
}

type builderKey struct {
	role     Role
	language string
}

// Builder memoizes Build per role and language
type Builder struct {
	mu    sync.Mutex
	cache map[builderKey][]Item
}

// Items returns the same items Build would, reusing an earlier result for the
// same role and language. The returned slice is a copy
func (b *Builder) Items(role Role, t Translator) []Item {
	key := builderKey{role: role, language: t.Language()}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache == nil {
		b.cache = make(map[builderKey][]Item)
	}
	items, ok := b.cache[key]
	if !ok {
		items = Build(role, t)
		b.cache[key] = items
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// IsActive reports whether an item path is the current route
func IsActive(itemPath, currentPath string) bool {
	if currentPath == "" {
		currentPath = "/"
	}
	return itemPath == currentPath
}
