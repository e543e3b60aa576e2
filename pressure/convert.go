package pressure

// stage0 applies masking then voltage-to-resistance conversion in place.
// Grounded on DataHandlerPressure.handle_raw_frame: opposite-mode takes
// priority over delta-R mode when both are set (DESIGN.md Open Question 1).
func (h *Handler) stage0(raw []float64) {
	if h.cfg.Mask != nil {
		for i, m := range h.cfg.Mask {
			raw[i] *= m
		}
	}

	if !h.cfg.Convert {
		return
	}

	v0 := h.cfg.V0
	r0reci := h.cfg.R0Reci

	for i, v := range raw {
		var y float64
		if v >= v0 {
			y = 0
		} else {
			y = r0reci * v / (v0 - v)
		}

		switch h.cfg.ConvertMode {
		case ConvertOpposite:
			if y != 0 {
				y = -1 / y
			}
		case ConvertDeltaR:
			if y != 0 {
				y = 1 / y
			}
			if y != 0 {
				y = abs(y-h.r0Start[i]) / h.r0Start[i]
			}
			y *= 10
		}

		raw[i] = y
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
