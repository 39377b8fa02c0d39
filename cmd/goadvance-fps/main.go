// Command goadvance-fps runs a ROM headlessly for a fixed number of
// frames and reports the frame rate achieved, the benchmarking
// counterpart to the teacher's headless.go "FPS" mode.
package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/alecthomas/kong"

	"github.com/oskale/goadvance/cartridge"
	"github.com/oskale/goadvance/console"
)

var cli struct {
	ROM        string `arg:"" name:"rom" help:"Path to a GBA ROM image." type:"existingfile"`
	Frames     int    `name:"frames" help:"Number of frames to run." default:"600"`
	CPUProfile string `name:"cpuprofile" help:"Write a CPU profile to this file." type:"path"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("goadvance-fps"),
		kong.Description("Runs a ROM headlessly and reports the frame rate achieved."),
		kong.UsageOnError())

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	data, err := os.ReadFile(cli.ROM)
	if err != nil {
		return err
	}

	if cli.CPUProfile != "" {
		f, err := os.Create(cli.CPUProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	c := console.New()
	c.AttachROM(cartridge.NewROM(data), cartridge.BackupNone)
	c.Reset()

	start := time.Now()
	for i := 0; i < cli.Frames; i++ {
		if _, err := c.RunForOneFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	fmt.Printf("%.2f fps\n", float64(cli.Frames)/time.Since(start).Seconds())
	return nil
}
