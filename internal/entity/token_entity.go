package entity

import (
	"time"

	"golang.org/x/oauth2"
)

type TokenRecord struct {
	AccountId string
	UserEmail string
	Token     *oauth2.Token
	UpdatedAt time.Time
}
