package server

import "math"

// haversine calculates distance between two points in km
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth's radius in km
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Stats summarises a session's trail.
type Stats struct {
	TrackingID string  `json:"trackingId"`
	Points     int     `json:"points"`
	DistanceKm float64 `json:"distanceKm"`
	First      string  `json:"first,omitempty"`
	Last       string  `json:"last,omitempty"`
}

// Stats computes the distance covered by a session's trail. Distance is
// the sum of great circle legs between consecutive samples, so it is
// zero for fewer than two points.
func (s *Server) Stats(id string) (*Stats, error) {
	if _, err := s.Sessions.Get(id); err != nil {
		return nil, err
	}

	trail := s.History.Trail(id)

	stats := &Stats{
		TrackingID: id,
		Points:     len(trail),
	}
	if len(trail) == 0 {
		return stats, nil
	}

	stats.First = trail[0].Timestamp
	stats.Last = trail[len(trail)-1].Timestamp

	for i := 1; i < len(trail); i++ {
		stats.DistanceKm += haversine(
			trail[i-1].Latitude, trail[i-1].Longitude,
			trail[i].Latitude, trail[i].Longitude)
	}

	return stats, nil
}
