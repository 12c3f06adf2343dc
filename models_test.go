package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestSignupUserDefaults(t *testing.T) {
	db := newTestDB(t)
	user := mustSignup(t, db, "t1", "t1@x.com", "pw")

	if user.ID == 0 {
		t.Error("expected an assigned id")
	}
	if user.Password == "pw" || !strings.HasPrefix(user.Password, "$2a$") {
		t.Errorf("stored password should be a bcrypt hash, got %q", user.Password)
	}
	if user.ImageURL != DefaultImageURL {
		t.Errorf("expected default image url, got %q", user.ImageURL)
	}
	if user.HeaderImageURL != DefaultHeaderImageURL {
		t.Errorf("expected default header image url, got %q", user.HeaderImageURL)
	}
	if user.Bio != "" || user.Location != "" {
		t.Error("bio and location should default to empty strings")
	}
}

func TestSignupUserDuplicate(t *testing.T) {
	db := newTestDB(t)
	mustSignup(t, db, "t1", "t1@x.com", "pw")

	if _, err := SignupUser(db, "t1", "other@x.com", "pw", ""); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("duplicate username: expected ErrDuplicatedKey, got %v", err)
	}
	if _, err := SignupUser(db, "other", "t1@x.com", "pw", ""); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("duplicate email: expected ErrDuplicatedKey, got %v", err)
	}
}

func TestSignupUserEmptyPassword(t *testing.T) {
	db := newTestDB(t)
	if _, err := SignupUser(db, "t1", "t1@x.com", "", ""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestFollowUnfollow(t *testing.T) {
	db := newTestDB(t)
	alice := mustSignup(t, db, "alice", "alice@x.com", "pw")
	bob := mustSignup(t, db, "bob", "bob@x.com", "pw")

	following, err := alice.IsFollowing(db, bob)
	if err != nil || following {
		t.Fatalf("expected no follow edge yet (following=%v, err=%v)", following, err)
	}

	if err := alice.Follow(db, bob); err != nil {
		t.Fatalf("follow: %v", err)
	}

	if following, _ := alice.IsFollowing(db, bob); !following {
		t.Error("alice should be following bob")
	}
	if followedBy, _ := bob.IsFollowedBy(db, alice); !followedBy {
		t.Error("bob should be followed by alice")
	}
	if following, _ := bob.IsFollowing(db, alice); following {
		t.Error("follow edges are directional")
	}

	// Following twice must not create a second edge.
	if err := alice.Follow(db, bob); err != nil {
		t.Fatalf("repeat follow should be a no-op, got %v", err)
	}
	var count int64
	db.Model(&Follow{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 follow edge, got %d", count)
	}

	if err := alice.Unfollow(db, bob); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	db.Model(&Follow{}).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 follow edges after unfollow, got %d", count)
	}

	// Unfollowing someone never followed is a silent no-op.
	if err := alice.Unfollow(db, bob); err != nil {
		t.Errorf("unfollow of a missing edge should not error, got %v", err)
	}
}

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	alice := mustSignup(t, db, "alice", "alice@x.com", "pw")
	bob := mustSignup(t, db, "bob", "bob@x.com", "pw")

	msg, err := CreateMessage(db, bob, "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if liked, _ := alice.HasLiked(db, msg); liked {
		t.Fatal("no like expected yet")
	}

	if err := alice.ToggleLike(db, msg); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if liked, _ := alice.HasLiked(db, msg); !liked {
		t.Error("one toggle should add the like")
	}

	if err := alice.ToggleLike(db, msg); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if liked, _ := alice.HasLiked(db, msg); liked {
		t.Error("two toggles should restore the original state")
	}
}

func TestHomeFeed(t *testing.T) {
	db := newTestDB(t)
	me := mustSignup(t, db, "me", "me@x.com", "pw")
	b := mustSignup(t, db, "b", "b@x.com", "pw")
	c := mustSignup(t, db, "c", "c@x.com", "pw")
	stranger := mustSignup(t, db, "stranger", "s@x.com", "pw")

	if err := me.Follow(db, b); err != nil {
		t.Fatal(err)
	}
	if err := me.Follow(db, c); err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC()
	seed := func(u *User, text string, offset time.Duration) {
		msg := &Message{Text: text, Timestamp: base.Add(offset), UserID: u.ID}
		if err := db.Create(msg).Error; err != nil {
			t.Fatal(err)
		}
	}
	seed(me, "mine", 1*time.Second)
	seed(b, "from b", 2*time.Second)
	seed(c, "from c", 3*time.Second)
	seed(stranger, "from stranger", 4*time.Second)

	feed, err := HomeFeed(db, me)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}

	if len(feed) != 3 {
		t.Fatalf("expected 3 feed entries, got %d", len(feed))
	}
	for _, m := range feed {
		if m.UserID == stranger.ID {
			t.Error("feed must not include unfollowed authors")
		}
	}
	// Newest first.
	if feed[0].Text != "from c" || feed[1].Text != "from b" || feed[2].Text != "mine" {
		t.Errorf("unexpected feed order: %q, %q, %q", feed[0].Text, feed[1].Text, feed[2].Text)
	}
}

func TestHomeFeedCap(t *testing.T) {
	db := newTestDB(t)
	me := mustSignup(t, db, "me", "me@x.com", "pw")

	base := time.Now().UTC()
	for i := 0; i < HomeFeedLimit+5; i++ {
		msg := &Message{
			Text:      fmt.Sprintf("msg %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    me.ID,
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatal(err)
		}
	}

	feed, err := HomeFeed(db, me)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != HomeFeedLimit {
		t.Errorf("expected the feed capped at %d, got %d", HomeFeedLimit, len(feed))
	}
	if feed[0].Text != fmt.Sprintf("msg %d", HomeFeedLimit+4) {
		t.Errorf("expected the newest message first, got %q", feed[0].Text)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	db := newTestDB(t)
	alice := mustSignup(t, db, "alice", "alice@x.com", "pw")
	bob := mustSignup(t, db, "bob", "bob@x.com", "pw")

	msg, err := CreateMessage(db, alice, "soon gone")
	if err != nil {
		t.Fatal(err)
	}
	if err := alice.Follow(db, bob); err != nil {
		t.Fatal(err)
	}
	if err := bob.Follow(db, alice); err != nil {
		t.Fatal(err)
	}
	if err := bob.ToggleLike(db, msg); err != nil {
		t.Fatal(err)
	}
	if err := alice.ToggleLike(db, msg); err != nil {
		t.Fatal(err)
	}

	if err := DeleteUser(db, alice); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := GetUser(db, alice.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected the user gone, got %v", err)
	}

	var count int64
	db.Model(&Message{}).Where("user_id = ?", alice.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected alice's messages gone, found %d", count)
	}
	db.Model(&Follow{}).Count(&count)
	if count != 0 {
		t.Errorf("expected all follow edges gone, found %d", count)
	}
	db.Model(&Like{}).Count(&count)
	if count != 0 {
		t.Errorf("expected all like edges gone, found %d", count)
	}
}

func TestDeleteMessageRemovesLikes(t *testing.T) {
	db := newTestDB(t)
	alice := mustSignup(t, db, "alice", "alice@x.com", "pw")
	bob := mustSignup(t, db, "bob", "bob@x.com", "pw")

	msg, err := CreateMessage(db, alice, "hi")
	if err != nil {
		t.Fatal(err)
	}
	if err := bob.ToggleLike(db, msg); err != nil {
		t.Fatal(err)
	}

	if err := DeleteMessage(db, msg); err != nil {
		t.Fatalf("delete message: %v", err)
	}

	var count int64
	db.Model(&Like{}).Count(&count)
	if count != 0 {
		t.Errorf("expected likes on the deleted message gone, found %d", count)
	}
	if _, err := GetMessage(db, msg.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected the message gone, got %v", err)
	}
}

func TestListUsersFilter(t *testing.T) {
	db := newTestDB(t)
	mustSignup(t, db, "testuser", "t1@x.com", "pw")
	mustSignup(t, db, "testuser2", "t2@x.com", "pw")
	mustSignup(t, db, "someone", "t3@x.com", "pw")

	all, err := ListUsers(db, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 users, got %d (err=%v)", len(all), err)
	}

	matched, err := ListUsers(db, "testuser")
	if err != nil || len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d (err=%v)", len(matched), err)
	}

	none, err := ListUsers(db, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no matches, got %d (err=%v)", len(none), err)
	}
}
