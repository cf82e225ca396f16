package http

import "fmt"

func validateLocationRequest(req *locationRequest) error {
	if req.Latitude < -90 || req.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if req.CapturedAt <= 0 {
		return fmt.Errorf("captured_at: must be positive")
	}
	return nil
}

func validateZoneRequest(req *zoneRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name: required")
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if req.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters: must be positive")
	}
	return nil
}
