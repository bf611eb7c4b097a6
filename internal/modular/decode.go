package modular

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
	"github.com/jxlcore/jxl/internal/matree"
)

// DecodeChannel fills one channel's samples by walking the MA tree once
// per pixel in raster order, using already-decoded west/north
// neighborhood samples as context, and undoing the chosen predictor
// (§4.D, §4.F). streamIndex is the MA tree's PropStream value for this
// channel (distinguishing e.g. the base image's channels from a
// downsampled squeeze residual's).
func DecodeChannel(r *bio.Reader, dec *entropy.Decoder, tree *matree.FlatTree, ch *Channel, channelIndex, streamIndex int) error {
	sc := newSelfCorrectingPredictor()

	var props [16]int32
	props[matree.PropChannel] = int32(channelIndex)
	props[matree.PropStream] = int32(streamIndex)

	for y := 0; y < ch.Height; y++ {
		sc = newSelfCorrectingPredictor()
		for x := 0; x < ch.Width; x++ {
			nb := neighborhood{
				W:  ch.At(x-1, y),
				N:  ch.At(x, y-1),
				NW: ch.At(x-1, y-1),
				NE: ch.At(x+1, y-1),
				WW: ch.At(x-2, y),
				NN: ch.At(x, y-2),
			}
			props[2] = nb.W
			props[3] = nb.N
			props[4] = nb.NW
			props[5] = nb.NE
			props[matree.PropSelfCorrectingError] = sc.PropSelfCorrectingError()

			leaf := tree.Walk(props)

			var pred int32
			var subs [4]int32
			if Predictor(leaf.Predictor) == PredictorWeighted {
				pred, subs = sc.Predict(nb)
			} else {
				pred = predictFixed(Predictor(leaf.Predictor), nb)
			}
			tok, err := dec.ReadVarint(r, leaf.Cluster)
			if err != nil {
				return err
			}
			residual := entropy.UnpackSigned(tok) * leaf.Multiplier

			v := pred + residual + leaf.Offset
			ch.Set(x, y, v)

			if Predictor(leaf.Predictor) == PredictorWeighted {
				sc.Update(subs, v)
			}
		}
	}
	return nil
}

// DecodeImage decodes every channel of img in turn, then walks the
// frame's transform list in reverse order (§4.F). Only RCT entries are
// undone; palette and squeeze entries leave img unchanged.
func DecodeImage(r *bio.Reader, dec *entropy.Decoder, tree *matree.Tree, img *Image, transforms []Transform) error {
	for i := range img.Channels {
		flat := tree.Flatten(i, 0)
		if err := DecodeChannel(r, dec, &flat, &img.Channels[i], i, 0); err != nil {
			return err
		}
	}
	for i := len(transforms) - 1; i >= 0; i-- {
		t := transforms[i]
		switch t.Kind {
		case TransformRCT:
			if err := applyRCTInverse(img, t); err != nil {
				return err
			}
		case TransformPalette:
			// Palette is not undone here: the indexed channels keep
			// their decoded index values.
		case TransformSqueeze:
			// Squeeze is not undone here: applySqueezeInverse, which
			// changes channel count/dimensions rather than values, is
			// not called on this path.
		}
	}
	return nil
}
