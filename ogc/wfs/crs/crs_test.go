package crs

import (
	"testing"

	"github.com/gdey/tbltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromURI(t *testing.T) {
	tests := tbltest.Cases(
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "urn:ogc:def:crs:EPSG::28992", WantSRID: 28992, WantAxis: AxisXY},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "urn:ogc:def:crs:OGC::CRS84", WantSRID: 4326, WantAxis: AxisXY},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "http://www.opengis.net/def/crs/epsg/0/4326", WantSRID: 4326, WantAxis: AxisYX},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "EPSG:4326", WantSRID: 4326, WantAxis: AxisYX},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "EPSG:4326", Policy: Policy{ForceXyEpsg4326: true}, WantSRID: 4326, WantAxis: AxisXY},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "http://www.opengis.net/gml/srs/epsg.xml#28992", WantSRID: 28992, WantAxis: AxisXY},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "urn:ogc:def:crs:EPSG::not-a-number", WantError: true},
		struct {
			URI       string
			Policy    Policy
			WantSRID  int
			WantAxis  AxisOrder
			WantError bool
		}{URI: "bogus-crs-form", WantError: true},
	)

	tests.Run(func(idx int, test struct {
		URI       string
		Policy    Policy
		WantSRID  int
		WantAxis  AxisOrder
		WantError bool
	}) {
		got, err := FromURI(test.URI, test.Policy)
		if test.WantError {
			require.Error(t, err)
			return
		}
		require.NoError(t, err)
		assert.Equal(t, test.WantSRID, got.SRID())
		assert.Equal(t, test.WantAxis, got.AxisOrder())
	})
}

func TestEqual(t *testing.T) {
	a := New("EPSG", 28992)
	b := New("EPSG", 28992)
	c := New("EPSG", 4326)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestCRS84AlwaysXY(t *testing.T) {
	assert.Equal(t, AxisXY, CRS84.AxisOrder())
	assert.Equal(t, "urn:ogc:def:crs:OGC::CRS84", CRS84.URI())
}
