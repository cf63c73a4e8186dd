package storage

import (
	"sort"

	"github.com/rumbify/rumbify/internal/model"
)

// SortCodes orders codes by creation time, then by code, so every backend
// lists them the same way
func SortCodes(codes []*model.EntryCode) {
	sort.SliceStable(codes, func(i, j int) bool {
		if !codes[i].CreatedAt.Equal(codes[j].CreatedAt) {
			return codes[i].CreatedAt.Before(codes[j].CreatedAt)
		}
		return codes[i].Code < codes[j].Code
	})
}
