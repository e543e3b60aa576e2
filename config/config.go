// Package config implements the MatSense configuration model (C8): a
// defaults ⊕ file ⊕ CLI merge with validation and YAML round-tripping.
// Grounded on matsense/tools.py (check_config, combine_config, parse_config,
// dump_config, NumericStringParser) and matsense/serverkit/userver.go's
// CONFIG/RESTART use of the same document.
//
// Every leaf field is a pointer so "unset" (nil) is distinguishable from
// "set to the zero value" — the same distinction the original keeps by
// using Python's None. Merge always lets the overlay's explicitly-set
// fields win; this is the direction SPEC_FULL.md §4.8 requires (a RESTART
// patch must actually take effect), rather than the reference
// implementation's combine_config, whose argument order only fills gaps in
// the first config from the second — see DESIGN.md Open Question 5.
package config

// Sensor describes the physical sensor grid.
type Sensor struct {
	Shape []int  `yaml:"shape,omitempty"`
	Total *int   `yaml:"total,omitempty"`
	Mask  string `yaml:"mask,omitempty"`
}

// Serial describes the frame source transport.
type Serial struct {
	Port     *string `yaml:"port,omitempty"`
	Baudrate *int    `yaml:"baudrate,omitempty"`
	Timeout  *float64 `yaml:"timeout,omitempty"`
	IMU      *bool   `yaml:"imu,omitempty"`
	Protocol *string `yaml:"protocol,omitempty"` // "simple" or "secure"
}

// Connection describes the RPC transport.
type Connection struct {
	ServerAddress *string `yaml:"server_address,omitempty"`
	ClientAddress *string `yaml:"client_address,omitempty"`
	UDP           *bool   `yaml:"udp,omitempty"`
}

// Process describes the DSP pipeline (pressure.Config plus blob/interp
// settings).
type Process struct {
	Convert     *bool    `yaml:"convert,omitempty"`
	ResiOpposite *bool   `yaml:"resi_opposite,omitempty"`
	ResiDelta   *bool    `yaml:"resi_delta,omitempty"`
	V0          *string  `yaml:"V0,omitempty"`
	R0Reci      *float64 `yaml:"R0_RECI,omitempty"`

	// FilterSpatial selects the spatial low-pass kernel: "none", "ideal",
	// "butterworth", or "gaussian". Grounded on
	// matsense/process/data_handler.py's FILTER_SPATIAL enum.
	FilterSpatial       *string  `yaml:"filter_spatial,omitempty"`
	FilterSpatialCutoff *float64 `yaml:"filter_spatial_cutoff,omitempty"`
	ButterworthOrder    *int     `yaml:"butterworth_order,omitempty"`

	// FilterTemporal selects the temporal FIR profile: "none",
	// "moving_average", or "rectangular_window". Grounded on
	// matsense/process/data_handler.py's FILTER_TEMPORAL enum.
	FilterTemporal     *string  `yaml:"filter_temporal,omitempty"`
	FilterTemporalSize *int     `yaml:"filter_temporal_size,omitempty"`
	RWCutoff           *float64 `yaml:"rw_cutoff,omitempty"`

	CaliFrames        *int     `yaml:"cali_frames,omitempty"`
	CaliWinSize       *int     `yaml:"cali_win_size,omitempty"`
	CaliWinBufferSize *int     `yaml:"cali_win_buffer_size,omitempty"`
	CaliThreshold     *float64 `yaml:"cali_threshold,omitempty"`

	WarmUp *float64 `yaml:"warm_up,omitempty"`

	Interp      []int `yaml:"interp,omitempty"`
	InterpOrder *int  `yaml:"interp_order,omitempty"`

	Blob          *bool    `yaml:"blob,omitempty"`
	BlobNum       *int     `yaml:"blob_num,omitempty"`
	Threshold     *float64 `yaml:"threshold,omitempty"`
	SpecialCheck  *bool    `yaml:"special_check,omitempty"`
	Intermediate  *int     `yaml:"intermediate,omitempty"`
}

// Visual describes the optional live-view client, carried through for
// round-tripping even though no Non-goal excludes it.
type Visual struct {
	Zlim       []float64 `yaml:"zlim,omitempty"`
	FPS        *int      `yaml:"fps,omitempty"`
	Scatter    *bool     `yaml:"scatter,omitempty"`
	ShowValue  *bool     `yaml:"show_value,omitempty"`
}

// Metrics is the domain-stack addition described in SPEC_FULL.md §2b.
type Metrics struct {
	Enabled       *bool   `yaml:"enabled,omitempty"`
	ListenAddress *string `yaml:"listen_address,omitempty"`
}

// Config is the full configuration document.
type Config struct {
	Sensor     Sensor     `yaml:"sensor"`
	Serial     Serial     `yaml:"serial"`
	Connection Connection `yaml:"connection"`
	Process    Process    `yaml:"process"`
	Visual     Visual     `yaml:"visual"`
	Metrics    Metrics    `yaml:"metrics"`

	ServerMode *bool `yaml:"server_mode,omitempty"`
	ClientMode *bool `yaml:"client_mode,omitempty"`
}
