// Package constants holds context keys and process wide singletons.
package constants

import "github.com/go-playground/validator/v10"

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	RequestStart contextKey = "request_start"
	RequestID    contextKey = "request_id"
	TxKey        contextKey = "tx"
	PoolKey      contextKey = "pool"
	AppKey       contextKey = "app"
	ParamsKey    contextKey = "params"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

const (
	DateFormat = "2006-01-02"
)
