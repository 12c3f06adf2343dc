package main

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"

	// MaxMessageLength bounds the text of a single warble.
	MaxMessageLength = 140

	// HomeFeedLimit caps the number of messages on the logged-in homepage.
	HomeFeedLimit = 100
)

var ErrEmptyPassword = errors.New("password must not be empty")

// User is an account in the system. Username and email are globally unique.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;not null"`
	Email          string `gorm:"uniqueIndex;not null"`
	Password       string `gorm:"not null"`
	ImageURL       string `gorm:"not null"`
	HeaderImageURL string `gorm:"not null"`
	Bio            string `gorm:"not null;default:''"`
	Location       string `gorm:"not null;default:''"`

	Messages []Message `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Message is an individual warble. Immutable once created, except deletion.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	Text      string    `gorm:"size:140;not null"`
	Timestamp time.Time `gorm:"not null;index"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Follow is a directed edge: UserFollowingID follows UserBeingFollowedID.
// The composite primary key makes the edge unique.
type Follow struct {
	UserBeingFollowedID uint `gorm:"primaryKey"`
	UserFollowingID     uint `gorm:"primaryKey"`
}

// Like connects a user to a message they endorse.
type Like struct {
	UserID    uint `gorm:"primaryKey"`
	MessageID uint `gorm:"primaryKey"`
}

// HashPassword encrypts a password with bcrypt. An empty password is refused.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SignupUser hashes the password and creates the user row. A blank image URL
// falls back to the default placeholder. Duplicate username or email surfaces
// as gorm.ErrDuplicatedKey for the caller to handle.
func SignupUser(db *gorm.DB, username, email, password, imageURL string) (*User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		imageURL = DefaultImageURL
	}

	user := &User{
		Username:       username,
		Email:          email,
		Password:       hashed,
		ImageURL:       imageURL,
		HeaderImageURL: DefaultHeaderImageURL,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate looks up username and verifies password against the stored
// hash. It returns nil on any mismatch: an unknown username and a wrong
// password are indistinguishable to the caller.
func Authenticate(db *gorm.DB, username, password string) *User {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil
	}
	if !CheckPasswordHash(password, user.Password) {
		return nil
	}
	return &user
}

func GetUser(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users, or those whose username contains q.
func ListUsers(db *gorm.DB, q string) ([]User, error) {
	var users []User
	tx := db.Order("id")
	if q != "" {
		tx = tx.Where("username LIKE ?", "%"+q+"%")
	}
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// IsFollowing reports whether u follows other, as an existence query against
// the follows table.
func (u *User) IsFollowing(db *gorm.DB, other *User) (bool, error) {
	var count int64
	err := db.Model(&Follow{}).
		Where("user_following_id = ? AND user_being_followed_id = ?", u.ID, other.ID).
		Count(&count).Error
	return count > 0, err
}

// IsFollowedBy is the symmetric membership test over u's follower set.
func (u *User) IsFollowedBy(db *gorm.DB, other *User) (bool, error) {
	return other.IsFollowing(db, u)
}

// Follow adds a follow edge from u to other. Following a user twice is a
// no-op: the edge insert does nothing on conflict with the composite key.
func (u *User) Follow(db *gorm.DB, other *User) error {
	edge := Follow{UserBeingFollowedID: other.ID, UserFollowingID: u.ID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
}

// Unfollow removes the follow edge from u to other. Removing an edge that
// does not exist is a silent no-op.
func (u *User) Unfollow(db *gorm.DB, other *User) error {
	return db.
		Where("user_following_id = ? AND user_being_followed_id = ?", u.ID, other.ID).
		Delete(&Follow{}).Error
}

// Following returns the users u follows.
func (u *User) Following(db *gorm.DB) ([]User, error) {
	var users []User
	err := db.
		Joins("JOIN follows ON follows.user_being_followed_id = users.id").
		Where("follows.user_following_id = ?", u.ID).
		Find(&users).Error
	return users, err
}

// Followers returns the users that follow u.
func (u *User) Followers(db *gorm.DB) ([]User, error) {
	var users []User
	err := db.
		Joins("JOIN follows ON follows.user_following_id = users.id").
		Where("follows.user_being_followed_id = ?", u.ID).
		Find(&users).Error
	return users, err
}

// HasLiked reports whether u has liked msg.
func (u *User) HasLiked(db *gorm.DB, msg *Message) (bool, error) {
	var count int64
	err := db.Model(&Like{}).
		Where("user_id = ? AND message_id = ?", u.ID, msg.ID).
		Count(&count).Error
	return count > 0, err
}

// ToggleLike adds a like from u to msg, or removes it if already present.
// Two toggles in sequence restore the original state. The check and the
// write share a transaction; the composite key backstops a racing double-add.
func (u *User) ToggleLike(db *gorm.DB, msg *Message) error {
	return db.Transaction(func(tx *gorm.DB) error {
		liked, err := u.HasLiked(tx, msg)
		if err != nil {
			return err
		}
		if liked {
			return tx.
				Where("user_id = ? AND message_id = ?", u.ID, msg.ID).
				Delete(&Like{}).Error
		}
		return tx.Create(&Like{UserID: u.ID, MessageID: msg.ID}).Error
	})
}

// LikedMessages returns the messages u has liked, newest first.
func (u *User) LikedMessages(db *gorm.DB) ([]Message, error) {
	var messages []Message
	err := db.Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", u.ID).
		Order("messages.timestamp DESC").
		Find(&messages).Error
	return messages, err
}

// ProfileStats carries the counts shown on a profile page.
type ProfileStats struct {
	Messages  int64
	Following int64
	Followers int64
	Likes     int64
}

func (u *User) Stats(db *gorm.DB) (ProfileStats, error) {
	var s ProfileStats
	if err := db.Model(&Message{}).Where("user_id = ?", u.ID).Count(&s.Messages).Error; err != nil {
		return s, err
	}
	if err := db.Model(&Follow{}).Where("user_following_id = ?", u.ID).Count(&s.Following).Error; err != nil {
		return s, err
	}
	if err := db.Model(&Follow{}).Where("user_being_followed_id = ?", u.ID).Count(&s.Followers).Error; err != nil {
		return s, err
	}
	if err := db.Model(&Like{}).Where("user_id = ?", u.ID).Count(&s.Likes).Error; err != nil {
		return s, err
	}
	return s, nil
}

// DeleteUser removes the user and everything hanging off them in one
// transaction: their messages, likes on those messages, their own likes, and
// follow edges in both directions.
func DeleteUser(db *gorm.DB, user *User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&Message{}).Select("id").Where("user_id = ?", user.ID)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.
			Where("user_following_id = ? OR user_being_followed_id = ?", user.ID, user.ID).
			Delete(&Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, user.ID).Error
	})
}

// CreateMessage stores a new warble for u, stamped with the current UTC time.
func CreateMessage(db *gorm.DB, u *User, text string) (*Message, error) {
	msg := &Message{
		Text:      text,
		Timestamp: time.Now().UTC(),
		UserID:    u.ID,
	}
	if err := db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func GetMessage(db *gorm.DB, id uint) (*Message, error) {
	var msg Message
	if err := db.Preload("User").First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage removes a message together with its likes.
func DeleteMessage(db *gorm.DB, msg *Message) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", msg.ID).Delete(&Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Message{}, msg.ID).Error
	})
}

// UserMessages returns a user's own messages, newest first.
func UserMessages(db *gorm.DB, u *User) ([]Message, error) {
	var messages []Message
	err := db.Preload("User").
		Where("user_id = ?", u.ID).
		Order("timestamp DESC").
		Find(&messages).Error
	return messages, err
}

// HomeFeed returns the newest messages authored by u or anyone u follows,
// capped at HomeFeedLimit.
func HomeFeed(db *gorm.DB, u *User) ([]Message, error) {
	followedIDs := db.Model(&Follow{}).
		Select("user_being_followed_id").
		Where("user_following_id = ?", u.ID)

	var messages []Message
	err := db.Preload("User").
		Where("user_id IN (?) OR user_id = ?", followedIDs, u.ID).
		Order("timestamp DESC").
		Limit(HomeFeedLimit).
		Find(&messages).Error
	return messages, err
}
