// Package messages stores the marketing site's contact-form
// submissions and newsletter subscribers.
package messages

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ContactMessage is one contact-form submission.
type ContactMessage struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;index"`
	Subject   string
	Body      string    `gorm:"not null"`
	Read      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Subscriber is a newsletter signup. Emails are unique; resubscribing
// re-activates an unsubscribed address.
type Subscriber struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"uniqueIndex;not null"`
	Active         bool   `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UnsubscribedAt *time.Time
}

var ErrInvalidEmail = errors.New("invalid email address")
var ErrEmptyMessage = errors.New("message body cannot be empty")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// SaveContactMessage validates and stores a contact-form submission.
func SaveContactMessage(db *gorm.DB, logger *slog.Logger, msg *ContactMessage) error {
	msg.Email = normalizeEmail(msg.Email)
	if !validEmail(msg.Email) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(msg.Body) == "" {
		return ErrEmptyMessage
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(msg).Error
	})
}

// ListContactMessages returns submissions, newest first.
func ListContactMessages(db *gorm.DB, limit int) ([]ContactMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []ContactMessage
	err := db.Order("created_at DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// MarkContactMessageRead flags a message as handled.
func MarkContactMessageRead(db *gorm.DB, logger *slog.Logger, id uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&ContactMessage{}).Where("id = ?", id).Update("read", true).Error
	})
}

// Subscribe adds or re-activates a newsletter subscriber.
func Subscribe(db *gorm.DB, logger *slog.Logger, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(`
            INSERT INTO subscribers (email, active, created_at)
            VALUES (?, 1, ?)
            ON CONFLICT(email) DO UPDATE SET active = 1, unsubscribed_at = NULL
        `, email, time.Now().UTC()).Error
	})
}

// Unsubscribe deactivates a subscriber; unknown addresses are a no-op.
func Unsubscribe(db *gorm.DB, logger *slog.Logger, email string) error {
	email = normalizeEmail(email)
	now := time.Now().UTC()
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&Subscriber{}).Where("email = ?", email).
			Updates(map[string]interface{}{"active": false, "unsubscribed_at": now}).Error
	})
}

// ListSubscribers returns active subscribers, newest first.
func ListSubscribers(db *gorm.DB) ([]Subscriber, error) {
	var subs []Subscriber
	err := db.Where("active = ?", true).Order("created_at DESC").Find(&subs).Error
	return subs, err
}
