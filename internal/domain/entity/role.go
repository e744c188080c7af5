package entity

type Role struct {
	ID   string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name string `gorm:"not null;uniqueIndex"`
}
