package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// ParseTransactionFilters builds transaction filters from query parameters.
// Symbols and types are comma separated; dates accept YYYY-MM-DD or RFC3339.
// A date-only end_date covers the whole day. sortDir defaults to "asc".
func ParseTransactionFilters(symbolsParam, typesParam, startDateParam, endDateParam, sortDirParam string) (model.TransactionFilters, error) {
	filters := model.TransactionFilters{SortDir: "asc"}

	for _, symbol := range splitParam(symbolsParam) {
		filters.Symbols = append(filters.Symbols, strings.ToLower(symbol))
	}

	for _, kind := range splitParam(typesParam) {
		t := model.TransactionType(strings.ToUpper(kind))
		if !t.Valid() {
			return model.TransactionFilters{}, fmt.Errorf("invalid type: %s", kind)
		}
		filters.Types = append(filters.Types, t)
	}

	if startDateParam != "" {
		start, _, err := parseFilterTime(startDateParam)
		if err != nil {
			return model.TransactionFilters{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		filters.StartDate = &start
	}

	if endDateParam != "" {
		end, dateOnly, err := parseFilterTime(endDateParam)
		if err != nil {
			return model.TransactionFilters{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		if dateOnly {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		filters.EndDate = &end
	}

	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return model.TransactionFilters{}, fmt.Errorf("end_date must not be before start_date")
	}

	if sortDirParam != "" {
		sortDir := strings.ToLower(sortDirParam)
		if sortDir != "asc" && sortDir != "desc" {
			return model.TransactionFilters{}, fmt.Errorf("invalid sort_dir: must be 'asc' or 'desc'")
		}
		filters.SortDir = sortDir
	}

	return filters, nil
}

func splitParam(param string) []string {
	var parts []string
	for _, part := range strings.Split(param, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// parseFilterTime reports whether str was a bare date.
func parseFilterTime(str string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
