package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Validate fails fast on settings that must never fall back to defaults.
func (c Config) Validate() error {
	var errs []error

	if c.IsProduction() {
		if c.AccessTokenSecret == "" || c.AccessTokenSecret == devAccessSecret {
			errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required in production"))
		}
		if c.RefreshTokenSecret == "" || c.RefreshTokenSecret == devRefreshSecret {
			errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required in production"))
		}
		if c.PaymentMode == "offline" {
			errs = append(errs, errors.New("PAYMENT_MODE must be stripe or mpesa in production"))
		}
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}

	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver))
	}

	switch c.PaymentMode {
	case "offline":
	case "stripe":
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for PAYMENT_MODE=stripe"))
		}
	case "mpesa":
		for key, value := range map[string]string{
			"MPESA_CONSUMER_KEY":    c.MpesaConsumerKey,
			"MPESA_CONSUMER_SECRET": c.MpesaConsumerSecret,
			"MPESA_SHORTCODE":       c.MpesaShortCode,
			"MPESA_PASSKEY":         c.MpesaPasskey,
			"MPESA_CALLBACK_URL":    c.MpesaCallbackURL,
			"MPESA_CALLBACK_TOKEN":  c.MpesaCallbackToken,
		} {
			if value == "" {
				errs = append(errs, fmt.Errorf("%s is required for PAYMENT_MODE=mpesa", key))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_MODE %q is not supported", c.PaymentMode))
	}

	switch c.EventBroker {
	case "log", "nats", "amqp":
	default:
		errs = append(errs, fmt.Errorf("EVENT_BROKER %q is not supported", c.EventBroker))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
