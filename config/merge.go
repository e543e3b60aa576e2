package config

// Merge returns a new Config built by layering overlay on top of base: any
// field overlay sets explicitly replaces base's value; fields overlay
// leaves nil fall through to base. Call chain for the three-way merge is
// Merge(Merge(Defaults(), file), cli).
func Merge(base, overlay Config) Config {
	out := base

	out.Sensor = mergeSensor(base.Sensor, overlay.Sensor)
	out.Serial = mergeSerial(base.Serial, overlay.Serial)
	out.Connection = mergeConnection(base.Connection, overlay.Connection)
	out.Process = mergeProcess(base.Process, overlay.Process)
	out.Visual = mergeVisual(base.Visual, overlay.Visual)
	out.Metrics = mergeMetrics(base.Metrics, overlay.Metrics)

	if overlay.ServerMode != nil {
		out.ServerMode = overlay.ServerMode
	}
	if overlay.ClientMode != nil {
		out.ClientMode = overlay.ClientMode
	}

	return out
}

func mergeSensor(base, overlay Sensor) Sensor {
	out := base
	if overlay.Shape != nil {
		out.Shape = overlay.Shape
	}
	if overlay.Total != nil {
		out.Total = overlay.Total
	}
	if overlay.Mask != "" {
		out.Mask = overlay.Mask
	}
	return out
}

func mergeSerial(base, overlay Serial) Serial {
	out := base
	if overlay.Port != nil {
		out.Port = overlay.Port
	}
	if overlay.Baudrate != nil {
		out.Baudrate = overlay.Baudrate
	}
	if overlay.Timeout != nil {
		out.Timeout = overlay.Timeout
	}
	if overlay.IMU != nil {
		out.IMU = overlay.IMU
	}
	if overlay.Protocol != nil {
		out.Protocol = overlay.Protocol
	}
	return out
}

func mergeConnection(base, overlay Connection) Connection {
	out := base
	if overlay.ServerAddress != nil {
		out.ServerAddress = overlay.ServerAddress
	}
	if overlay.ClientAddress != nil {
		out.ClientAddress = overlay.ClientAddress
	}
	if overlay.UDP != nil {
		out.UDP = overlay.UDP
	}
	return out
}

func mergeProcess(base, overlay Process) Process {
	out := base
	if overlay.Convert != nil {
		out.Convert = overlay.Convert
	}
	if overlay.ResiOpposite != nil {
		out.ResiOpposite = overlay.ResiOpposite
	}
	if overlay.ResiDelta != nil {
		out.ResiDelta = overlay.ResiDelta
	}
	if overlay.V0 != nil {
		out.V0 = overlay.V0
	}
	if overlay.R0Reci != nil {
		out.R0Reci = overlay.R0Reci
	}
	if overlay.FilterSpatial != nil {
		out.FilterSpatial = overlay.FilterSpatial
	}
	if overlay.FilterSpatialCutoff != nil {
		out.FilterSpatialCutoff = overlay.FilterSpatialCutoff
	}
	if overlay.ButterworthOrder != nil {
		out.ButterworthOrder = overlay.ButterworthOrder
	}
	if overlay.FilterTemporal != nil {
		out.FilterTemporal = overlay.FilterTemporal
	}
	if overlay.FilterTemporalSize != nil {
		out.FilterTemporalSize = overlay.FilterTemporalSize
	}
	if overlay.RWCutoff != nil {
		out.RWCutoff = overlay.RWCutoff
	}
	if overlay.CaliFrames != nil {
		out.CaliFrames = overlay.CaliFrames
	}
	if overlay.CaliWinSize != nil {
		out.CaliWinSize = overlay.CaliWinSize
	}
	if overlay.CaliWinBufferSize != nil {
		out.CaliWinBufferSize = overlay.CaliWinBufferSize
	}
	if overlay.CaliThreshold != nil {
		out.CaliThreshold = overlay.CaliThreshold
	}
	if overlay.WarmUp != nil {
		out.WarmUp = overlay.WarmUp
	}
	if overlay.Interp != nil {
		out.Interp = overlay.Interp
	}
	if overlay.InterpOrder != nil {
		out.InterpOrder = overlay.InterpOrder
	}
	if overlay.Blob != nil {
		out.Blob = overlay.Blob
	}
	if overlay.BlobNum != nil {
		out.BlobNum = overlay.BlobNum
	}
	if overlay.Threshold != nil {
		out.Threshold = overlay.Threshold
	}
	if overlay.SpecialCheck != nil {
		out.SpecialCheck = overlay.SpecialCheck
	}
	if overlay.Intermediate != nil {
		out.Intermediate = overlay.Intermediate
	}
	return out
}

func mergeVisual(base, overlay Visual) Visual {
	out := base
	if overlay.Zlim != nil {
		out.Zlim = overlay.Zlim
	}
	if overlay.FPS != nil {
		out.FPS = overlay.FPS
	}
	if overlay.Scatter != nil {
		out.Scatter = overlay.Scatter
	}
	if overlay.ShowValue != nil {
		out.ShowValue = overlay.ShowValue
	}
	return out
}

func mergeMetrics(base, overlay Metrics) Metrics {
	out := base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.ListenAddress != nil {
		out.ListenAddress = overlay.ListenAddress
	}
	return out
}
