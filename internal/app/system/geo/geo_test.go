package geo

import (
	"testing"

	"github.com/advocacy-resources/advo-sub000/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

var (
	atlanta = models.GeoPoint{Lat: 33.7490, Lng: -84.3880}
	decatur = models.GeoPoint{Lat: 33.7748, Lng: -84.2963}
	nyc     = models.GeoPoint{Lat: 40.7128, Lng: -74.0060}
	la      = models.GeoPoint{Lat: 34.0522, Lng: -118.2437}
)

func TestDistanceMiles(t *testing.T) {
	assert.InDelta(t, 0, DistanceMiles(atlanta, atlanta), 1e-9)
	assert.InDelta(t, 5.6, DistanceMiles(atlanta, decatur), 0.3)
	assert.InDelta(t, 2445, DistanceMiles(nyc, la), 15)
	assert.InDelta(t, DistanceMiles(nyc, la), DistanceMiles(la, nyc), 1e-9)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(atlanta))
	assert.False(t, Valid(models.GeoPoint{}))
	assert.False(t, Valid(models.GeoPoint{Lat: 91, Lng: 10}))
	assert.False(t, Valid(models.GeoPoint{Lat: 10, Lng: -181}))
}
