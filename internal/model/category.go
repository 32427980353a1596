package model

// Category is a closed set of spending labels.
type Category string

const (
	CategoryHousing        Category = "housing"
	CategorySupermarket    Category = "supermarket"
	CategoryTransport      Category = "transport"
	CategoryHealth         Category = "health"
	CategoryEducation      Category = "education"
	CategoryLeisure        Category = "leisure"
	CategoryCommunications Category = "communications"
	CategorySubscriptions  Category = "subscriptions"
	CategoryUnexpected     Category = "unexpected"
	CategoryInvestment     Category = "investment"
	CategoryWork           Category = "work"
	CategoryVideoGames     Category = "video_games"
	CategoryOther          Category = "other"
)

// Categories lists every Category in display order.
var Categories = []Category{
	CategoryHousing,
	CategorySupermarket,
	CategoryTransport,
	CategoryHealth,
	CategoryEducation,
	CategoryLeisure,
	CategoryCommunications,
	CategorySubscriptions,
	CategoryUnexpected,
	CategoryInvestment,
	CategoryOther,
	CategoryWork,
	CategoryVideoGames,
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}
