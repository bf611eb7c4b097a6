package vardct

// Quantizer holds the frame-level scale factors used to turn entropy
// decoded integer coefficients back into DCT-domain values (§4.G).
//
// The dequantization formula matches the reference decoder's
// dequant_hf_varblock: each block's multiplier is
// 65536 / (GlobalScale * hf_mul) scaled by a per-channel qm_scale
// derived from XQmScale/BQmScale (Y has no such scale, matching the
// format's treatment of luma as the reference channel), then applied
// per coefficient through a dequant matrix entry and a quant-bias
// correction for small-magnitude values.
type Quantizer struct {
	GlobalScale uint32
	Quant       uint32

	// XQmScale and BQmScale are the frame's X/B channel quant-matrix
	// scale exponents; qmScale(x) = 0.8^(x-2) matches the format's
	// per-channel HF scaling (Y's scale is fixed at 1.0).
	XQmScale uint32
	BQmScale uint32

	// DCQuant and ACQuant are the per-channel (X, Y, B order) base step
	// sizes applied to the LF band ahead of HF dequantization.
	DCQuant [3]float32
	ACQuant [3]float32

	// QuantBias and QuantBiasNumerator implement the small-coefficient
	// bias correction (§4.G): |q|<=1 scales by QuantBias[channel],
	// otherwise q -= QuantBiasNumerator/q.
	QuantBias          [3]float32
	QuantBiasNumerator float32

	// DequantMatrix holds, per channel, one weight per coefficient
	// position within a block (length 64 * blockWidthBlocks *
	// blockHeightBlocks, same natural order as Block.Coeffs); nil means
	// a flat weight of 1.0 (the default per-shape dequant matrices the
	// format ships are an encoder-side concern beyond this decoder's
	// scope, so every position is weighted equally here).
	DequantMatrix [3][]float32
}

// DefaultQuantizer returns conventional step sizes in the absence of a
// signaled override.
func DefaultQuantizer() Quantizer {
	return Quantizer{
		GlobalScale: 1,
		Quant:       1,
		XQmScale:    2,
		BQmScale:    2,
		DCQuant:     [3]float32{1, 1, 1},
		ACQuant:     [3]float32{1, 1, 1},
		QuantBias:   [3]float32{1, 1, 1},
	}
}

// qmScale implements 0.8^(exponent-2), the format's per-channel
// quant-matrix scale curve; Y is fixed at 1.0 since luma is the
// reference channel the X/B scales are expressed relative to.
func qmScale(exponent uint32) float32 {
	scale := float32(1.0)
	e := int(exponent) - 2
	if e >= 0 {
		for i := 0; i < e; i++ {
			scale *= 0.8
		}
	} else {
		for i := 0; i < -e; i++ {
			scale /= 0.8
		}
	}
	return scale
}

// channelQmScale returns qm_scale for channel index (0=X, 1=Y, 2=B).
func (q Quantizer) channelQmScale(channel int) float32 {
	switch channel {
	case 0:
		return qmScale(q.XQmScale)
	case 2:
		return qmScale(q.BQmScale)
	default:
		return 1.0
	}
}

// applyQuantBias corrects a dequantized coefficient for the encoder's
// rounding bias: values at or under unit magnitude are scaled down,
// larger ones have a numerator subtracted off (§4.G).
func applyQuantBias(q, bias, numerator float32) float32 {
	if q <= 1 && q >= -1 {
		return q * bias
	}
	return q - numerator/q
}

// Dequantize converts raw integer HF coefficients for one block into
// DCT-domain float32 values, following dequant_hf_varblock: position 0
// (the LF-seeded DC/low corner) is left untouched by the caller ahead of
// LF integration, and every other position is scaled by
// 65536/(GlobalScale*HfMul) * qmScale(channel) * dequantMatrix[pos],
// with the quant-bias correction applied first (§4.G).
func (q Quantizer) Dequantize(channel int, coeffs []int32, hfMul int32, out []float32) {
	if hfMul == 0 {
		hfMul = 1
	}
	mul := 65536.0 / (float32(q.GlobalScale) * float32(hfMul)) * q.channelQmScale(channel)
	matrix := q.DequantMatrix[channel]
	bias := q.QuantBias[channel]
	for i := 1; i < len(coeffs); i++ {
		v := float32(coeffs[i])
		v = applyQuantBias(v, bias, q.QuantBiasNumerator)
		w := float32(1.0)
		if i < len(matrix) {
			w = matrix[i]
		}
		out[i] = v * w * mul
	}
}

// DequantizeLF scales a block's already-reconstructed LF (low-frequency)
// plane value using the frame-level LF quant step, matching
// dequant_lf's precision_scale/scale_inv formula (§4.G).
func (q Quantizer) DequantizeLF(channel int, lf int32, extraPrecision uint32) float32 {
	precisionScale := float32(int32(1) << (9 - extraPrecision))
	scaleInv := float32(q.GlobalScale * q.Quant)
	if scaleInv == 0 {
		scaleInv = 1
	}
	step := q.DCQuant[channel] * precisionScale / scaleInv
	return float32(lf) * step
}
