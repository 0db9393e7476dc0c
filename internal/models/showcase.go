package models

// ServiceCard is a hero card on the home page linking to a sister service.
type ServiceCard struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	IconURL     string `json:"iconSrc"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	Position    int    `gorm:"index" json:"position"`
}

// Winner is one tile of the winners carousel; it has no identity beyond
// its position.
type Winner struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `gorm:"index" json:"-"`
}
