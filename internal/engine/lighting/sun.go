package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-fx/pkg/math"
)

// SunDirection converts longitude/latitude angles in degrees to a unit
// direction pointing towards the light. Longitude rotates around Y,
// latitude is elevation from the horizon.
func SunDirection(longitude, latitude float32) math.Vec3 {
	lon := longitude * math32.Pi / 180
	lat := latitude * math32.Pi / 180

	return math.Vec3{
		X: math32.Cos(lat) * math32.Sin(lon),
		Y: math32.Sin(lat),
		Z: math32.Cos(lat) * math32.Cos(lon),
	}
}

// OrbitLight places a light at distance from center along SunDirection.
func OrbitLight(center math.Vec3, distance, longitude, latitude float32, color math.Vec3) PointLight {
	return NewPointLight(center.Add(SunDirection(longitude, latitude).Scale(distance)), color)
}
