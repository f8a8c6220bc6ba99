package models

type ContactMessage struct {
	Model
	UserID  *uint  `gorm:"index" json:"userId,omitempty"`
	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255;not null" json:"email"`
	Subject string `gorm:"size:255" json:"subject"`
	Message string `gorm:"type:text;not null" json:"message"`
}
