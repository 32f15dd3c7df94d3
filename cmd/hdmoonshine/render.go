package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/gekko3d/hdmoonshine/hd"
	"github.com/gekko3d/hdmoonshine/hdhost"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	renderFrames  int
	renderOut     string
	renderCamera  string
	renderBuffer  string
	renderProfile string
)

var renderCmd = &cobra.Command{
	Use:   "render <scene.yaml>",
	Short: "Sync a scene, accumulate frames and write the color buffer as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderFrames, "frames", 16, "frames to accumulate")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out.png", "output PNG file")
	renderCmd.Flags().StringVar(&renderCamera, "camera", "", "camera prim path (default: first camera)")
	renderCmd.Flags().StringVar(&renderBuffer, "buffer", "", "render buffer prim path (default: first buffer)")
	renderCmd.Flags().StringVar(&renderProfile, "profile", "", "write a cpu or mem profile")
}

func startProfile(kind string) (interface{ Stop() }, error) {
	switch kind {
	case "":
		return nil, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet), nil
	default:
		return nil, fmt.Errorf("unknown profile kind %q", kind)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	prof, err := startProfile(renderProfile)
	if err != nil {
		return err
	}
	if prof != nil {
		defer prof.Stop()
	}

	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	camera, err := pick("camera", s.index.SprimIDs(hd.PrimTypeCamera), renderCamera)
	if err != nil {
		return err
	}
	bufferID, err := pick("render buffer", s.index.BprimIDs(hd.PrimTypeRenderBuffer), renderBuffer)
	if err != nil {
		return err
	}
	state, err := hdhost.NewPassState(s.index, camera, bufferID)
	if err != nil {
		return err
	}
	pass := s.delegate.CreateRenderPass(s.index, hd.RprimCollection{Name: "geometry", ReprName: hd.ReprSmoothHull, RootPath: "/"})

	engine := &hdhost.Engine{}
	for frame := 0; frame < renderFrames; frame++ {
		if err := engine.Execute(cmd.Context(), s.index, pass, state); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}

	buffer := state.Aovs[0].RenderBuffer
	pixels := buffer.Map()
	defer buffer.Unmap()
	if pixels == nil {
		return fmt.Errorf("render buffer %s has no pixels", bufferID)
	}
	if err := writePNG(renderOut, pixels, buffer.Width(), buffer.Height()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, %d frames)\n", renderOut, buffer.Width(), buffer.Height(), renderFrames)
	return nil
}

// writePNG stores linear RGBA floats as an sRGB PNG.
func writePNG(path string, pixels []float32, width, height int) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := 4 * (y*width + x)
			img.SetNRGBA(x, y, color.NRGBA{
				R: toSRGB8(pixels[i]),
				G: toSRGB8(pixels[i+1]),
				B: toSRGB8(pixels[i+2]),
				A: 0xFF,
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func toSRGB8(v float32) uint8 {
	c := math.Max(0, math.Min(1, float64(v)))
	if c <= 0.0031308 {
		c *= 12.92
	} else {
		c = 1.055*math.Pow(c, 1/2.4) - 0.055
	}
	return uint8(math.Round(c * 255))
}
