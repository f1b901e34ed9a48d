package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{
		BottomLeft: Location{Lat: -34.0, Lon: -58.0},
		TopRight:   Location{Lat: -22.0, Lon: -44.0},
	}

	testCases := []struct {
		name     string
		loc      Location
		expected bool
	}{
		{"Porto Alegre", Location{Lat: -30.03, Lon: -51.23}, true},
		{"corner", Location{Lat: -34.0, Lon: -58.0}, true},
		{"Salvador", Location{Lat: -12.97, Lon: -38.5}, false},
		{"west of box", Location{Lat: -30.0, Lon: -60.0}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, box.Contains(tc.loc))
		})
	}
}

func TestListingLocation(t *testing.T) {
	l := Listing{Lat: -23.5, Lon: -46.6}
	assert.Equal(t, Location{Lat: -23.5, Lon: -46.6}, l.Location())
}
