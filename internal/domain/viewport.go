package domain

// ApplyRelayout folds a renderer relayout event into the current viewport.
// Rotation may arrive flattened ("geo.projection.rotation.lon"), bare ("lon")
// or nested under geo.projection.rotation; the nested form wins. An axis the
// event does not mention keeps its current value, so the globe never snaps
// back to the neutral view.
func ApplyRelayout(current Viewport, relayout map[string]any) Viewport {
	if len(relayout) == 0 {
		return current
	}

	lon, lonOK := firstNumber(relayout, "geo.projection.rotation.lon", "lon")
	lat, latOK := firstNumber(relayout, "geo.projection.rotation.lat", "lat")

	if geo, ok := relayout["geo"].(map[string]any); ok {
		proj, _ := geo["projection"].(map[string]any)
		rot, _ := proj["rotation"].(map[string]any)
		if v, ok := numericValue(rot["lon"]); ok {
			lon, lonOK = v, true
		}
		if v, ok := numericValue(rot["lat"]); ok {
			lat, latOK = v, true
		}
	}

	next := current
	if lonOK {
		next.Lon = lon
	}
	if latOK {
		next.Lat = lat
	}
	return next
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := numericValue(m[k]); ok {
			return v, true
		}
	}
	return 0, false
}
