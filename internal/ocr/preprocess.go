package ocr

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// PreprocessPNG rewrites a page image in place for better OCR accuracy:
// grayscale conversion, min-max contrast stretch, then binarization against
// the midpoint threshold. Scanned philosophy texts are mostly dark ink on
// yellowed paper, where a global threshold works well.
func PreprocessPNG(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open page image: %w", err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode page image: %w", err)
	}

	gray := toGray(img)
	stretchContrast(gray)
	binarize(gray, 128)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite page image: %w", err)
	}
	defer out.Close()
	if err := png.Encode(out, gray); err != nil {
		return fmt.Errorf("failed to encode page image: %w", err)
	}
	return nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// stretchContrast maps the observed [min,max] intensity range onto [0,255].
func stretchContrast(img *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range img.Pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi <= lo {
		return
	}

	span := int(hi) - int(lo)
	for i, p := range img.Pix {
		img.Pix[i] = uint8((int(p) - int(lo)) * 255 / span)
	}
}

// binarize snaps every pixel to pure black or white.
func binarize(img *image.Gray, threshold uint8) {
	for i, p := range img.Pix {
		if p < threshold {
			img.Pix[i] = 0
		} else {
			img.Pix[i] = 255
		}
	}
}
