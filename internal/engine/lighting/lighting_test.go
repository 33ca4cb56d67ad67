package lighting

import (
	"testing"

	"github.com/Faultbox/midgard-fx/pkg/math"
)

func lights(n int) []PointLight {
	out := make([]PointLight, n)
	for i := range out {
		out[i] = NewPointLight(
			math.Vec3{X: float32(i + 1), Y: 2, Z: 3},
			math.Vec3{X: 0.5, Y: 0.25, Z: 1},
		)
	}
	return out
}

func TestEncodeLightArray(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"none", 0, 0},
		{"one", 1, 1},
		{"exactly max", MaxPointLights, MaxPointLights},
		{"over max", MaxPointLights + 3, MaxPointLights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := EncodeLightArray(lights(tt.n))
			if int(a.Count) != tt.want {
				t.Fatalf("Count = %d, want %d", a.Count, tt.want)
			}
			for i := 0; i < MaxPointLights; i++ {
				if i < tt.want {
					want := math.Vec4{X: float32(i + 1), Y: 2, Z: 3}
					if a.Positions[i] != want {
						t.Errorf("Positions[%d] = %v, want %v", i, a.Positions[i], want)
					}
					if a.Colors[i] != (math.Vec4{X: 0.5, Y: 0.25, Z: 1}) {
						t.Errorf("Colors[%d] = %v", i, a.Colors[i])
					}
					continue
				}
				if a.Positions[i] != math.Vec4Zero || a.Colors[i] != math.Vec4Zero {
					t.Errorf("slot %d not zero: %v %v", i, a.Positions[i], a.Colors[i])
				}
			}
		})
	}
}

func TestLightArraySetClearsStaleSlots(t *testing.T) {
	var a LightArray
	a.Set(lights(MaxPointLights))
	a.Set(lights(2))

	if a.Count != 2 {
		t.Fatalf("Count = %d, want 2", a.Count)
	}
	for i := 2; i < MaxPointLights; i++ {
		if a.Positions[i] != math.Vec4Zero || a.Colors[i] != math.Vec4Zero {
			t.Fatalf("slot %d kept stale data", i)
		}
	}
}

func TestNewPointLightClampsColor(t *testing.T) {
	l := NewPointLight(math.Vec3{}, math.Vec3{X: 2, Y: -1, Z: 0.5})
	want := math.Vec3{X: 1, Y: 0, Z: 0.5}
	if l.Color != want {
		t.Errorf("Color = %v, want %v", l.Color, want)
	}
}

func TestSunDirection(t *testing.T) {
	tests := []struct {
		lon, lat float32
		want     math.Vec3
	}{
		{0, 0, math.Vec3{X: 0, Y: 0, Z: 1}},
		{90, 0, math.Vec3{X: 1, Y: 0, Z: 0}},
		{0, 90, math.Vec3{X: 0, Y: 1, Z: 0}},
	}

	for _, tt := range tests {
		got := SunDirection(tt.lon, tt.lat)
		if got.Sub(tt.want).Length() > 1e-5 {
			t.Errorf("SunDirection(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
		}
	}
}
