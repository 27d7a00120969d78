package main

import (
	"time"

	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func parseUUID(flag, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, responses.NewValidationError("--%s %q is not a valid id", flag, value)
	}
	return id, nil
}

func parseOptionalUUID(flag, value string) (uuid.NullUUID, error) {
	if value == "" {
		return uuid.NullUUID{}, nil
	}
	id, err := parseUUID(flag, value)
	if err != nil {
		return uuid.NullUUID{}, err
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

// parseDate accepts YYYY-MM-DD; an empty value means today.
func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, responses.NewValidationError("--%s %q must be formatted as YYYY-MM-DD", flag, value)
	}
	return t, nil
}

func parseDecimal(flag, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, responses.NewValidationError("--%s %q is not a number", flag, value)
	}
	return d, nil
}

func parseOptionalDecimal(flag, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := parseDecimal(flag, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
