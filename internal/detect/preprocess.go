package detect

import (
	"image"

	"gocv.io/x/gocv"
)

// enhanceForDetection prepares a color frame for the cascade classifier:
// denoise, sharpen, grayscale, then contrast-normalize with CLAHE. The
// caller owns the returned Mat.
func enhanceForDetection(frame gocv.Mat) gocv.Mat {
	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoisingColoredWithParams(frame, &denoised, 10, 10, 7, 21)

	sharpened := gocv.NewMat()
	defer sharpened.Close()
	kernel := sharpenKernel()
	defer kernel.Close()
	gocv.Filter2D(denoised, &sharpened, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(sharpened, &gray, gocv.ColorBGRToGray)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)

	return enhanced
}

// sharpenKernel is the classic 3x3 sharpening filter.
func sharpenKernel() gocv.Mat {
	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kernel.SetFloatAt(row, col, -1)
		}
	}
	kernel.SetFloatAt(1, 1, 9)
	return kernel
}
