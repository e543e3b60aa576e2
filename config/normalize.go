package config

import "fmt"

// Normalize fills derived fields and validates cross-field constraints, in
// place. Grounded on matsense/tools.py::check_config. Call it once after
// every Merge, before the config is handed to the pipeline or re-dumped as
// YAML.
func Normalize(c *Config) error {
	if c.Sensor.Shape != nil {
		shape, err := normalizeShape(c.Sensor.Shape)
		if err != nil {
			return fmt.Errorf("config: sensor.shape: %w", err)
		}
		c.Sensor.Shape = shape
		total := shape[0] * shape[1]
		c.Sensor.Total = &total
	}

	if c.Process.Interp != nil {
		interp, err := normalizeShape(c.Process.Interp)
		if err != nil {
			return fmt.Errorf("config: process.interp: %w", err)
		}
		c.Process.Interp = interp
	}

	if c.Process.V0 != nil {
		if _, err := EvalExpr(*c.Process.V0); err != nil {
			return fmt.Errorf("config: process.V0: %w", err)
		}
	}

	if c.Connection.ServerAddress != nil {
		if _, _, err := ParseAddress(*c.Connection.ServerAddress); err != nil {
			return fmt.Errorf("config: connection.server_address: %w", err)
		}
	}
	if c.Connection.ClientAddress != nil {
		if _, _, err := ParseAddress(*c.Connection.ClientAddress); err != nil {
			return fmt.Errorf("config: connection.client_address: %w", err)
		}
	}

	if c.Process.FilterSpatial != nil {
		switch *c.Process.FilterSpatial {
		case "none", "ideal", "butterworth", "gaussian":
		default:
			return fmt.Errorf("config: process.filter_spatial: invalid value %q", *c.Process.FilterSpatial)
		}
	}

	if c.Process.FilterTemporal != nil {
		switch *c.Process.FilterTemporal {
		case "none", "moving_average", "rectangular_window":
		default:
			return fmt.Errorf("config: process.filter_temporal: invalid value %q", *c.Process.FilterTemporal)
		}
	}

	if c.Sensor.Mask != "" && c.Sensor.Total != nil {
		grid, err := ParseMask(c.Sensor.Mask)
		if err != nil {
			return fmt.Errorf("config: sensor.mask: %w", err)
		}
		if len(grid) != *c.Sensor.Total {
			return fmt.Errorf("config: sensor.mask: %d cells, want %d", len(grid), *c.Sensor.Total)
		}
	}

	return nil
}

// normalizeShape accepts a 1- or 2-element slice (scalar shapes are dumped
// to YAML as single-element lists by this package) and returns a 2-element
// (R, C) shape.
func normalizeShape(shape []int) ([]int, error) {
	switch len(shape) {
	case 1:
		return []int{shape[0], shape[0]}, nil
	case 2:
		return []int{shape[0], shape[1]}, nil
	default:
		return nil, fmt.Errorf("expected 1 or 2 elements, got %d", len(shape))
	}
}
