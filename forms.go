package main

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SignupForm struct {
	Username string `validate:"required,max=30"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	ImageURL string `validate:"omitempty,max=255"`
}

type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type MessageForm struct {
	Text string `validate:"required,max=140"`
}

type ProfileEditForm struct {
	Username       string `validate:"omitempty,max=30"`
	Email          string `validate:"omitempty,email"`
	ImageURL       string `validate:"omitempty,max=255"`
	HeaderImageURL string `validate:"omitempty,max=255"`
	Bio            string
	Location       string
	Password       string `validate:"required"`
}

func NewSignupForm(r *http.Request) *SignupForm {
	return &SignupForm{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		ImageURL: r.PostFormValue("image_url"),
	}
}

func NewLoginForm(r *http.Request) *LoginForm {
	return &LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
}

func NewMessageForm(r *http.Request) *MessageForm {
	return &MessageForm{Text: r.PostFormValue("text")}
}

func NewProfileEditForm(r *http.Request) *ProfileEditForm {
	return &ProfileEditForm{
		Username:       r.PostFormValue("username"),
		Email:          r.PostFormValue("email"),
		ImageURL:       r.PostFormValue("image_url"),
		HeaderImageURL: r.PostFormValue("header_image_url"),
		Bio:            r.PostFormValue("bio"),
		Location:       r.PostFormValue("location"),
		Password:       r.PostFormValue("password"),
	}
}

// ValidateForm runs the declarative rules and maps each failure to a message
// suitable for flashing back at the form.
func ValidateForm(form any) []string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"Invalid input."}
	}

	var msgs []string
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Username" && fe.Tag() == "required":
			msgs = append(msgs, "You have to enter a username")
		case fe.Field() == "Password" && fe.Tag() == "required":
			msgs = append(msgs, "You have to enter a password")
		case fe.Field() == "Email":
			msgs = append(msgs, "You have to enter a valid email address")
		case fe.Field() == "Text" && fe.Tag() == "required":
			msgs = append(msgs, "You have to enter a message")
		case fe.Tag() == "max":
			msgs = append(msgs, fe.Field()+" is too long")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return msgs
}
