// Command orbitd is a real-time rotation-detection server: it reads
// framed accelerometer samples from a serial-attached microcontroller and
// serves the dominant rotation frequency and direction to TCP clients.
package main

/*------------------------------------------------------------------
 *
 * Purpose:	CLI entry point.
 *
 * Description:	pflag.*P options, a custom pflag.Usage printing a one-line
 *		program description before PrintDefaults, positional
 *		arguments read from pflag.Args() after flags are parsed.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/inertialorbit/orbitd/orbit"
)

func usage() {
	fmt.Fprintf(os.Stderr, "%s - real-time rotation-detection server.\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <device> <baud> <host> <port>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	pflag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	def := orbit.DefaultConfig()

	sensorType := pflag.String("sensor-type", def.SensorType, "registered sensor calibration profile")
	eastAxis := pflag.String("east-axis", "+x", "signed body-frame axis mapped to East, e.g. +x or -z")
	northAxis := pflag.String("north-axis", "+y", "signed body-frame axis mapped to North (not used downstream; 2D orbit only)")
	upAxis := pflag.String("up-axis", "+z", "signed body-frame axis mapped to Up")
	timeWindowMS := pflag.Uint32("time-window-ms", def.TimeWindowMS, "rolling window span in milliseconds")
	timeIntervalMS := pflag.Uint32("time-interval-ms", def.TimeIntervalMS, "interval accumulation span in milliseconds")
	timeDeltaMS := pflag.Uint32("time-delta-ms", def.TimeDeltaMS, "regular resample grid spacing in milliseconds")
	analysisWorkers := pflag.Int("analysis-workers", def.AnalysisWorkers, "number of analysis worker goroutines")
	graph := pflag.BoolP("graph", "g", false, "log fitted curve parameters for each analysed window")
	sonify := pflag.Bool("sonify", false, "play an audible tone tracking rotation frequency/direction")
	sensorProfiles := pflag.String("sensor-profiles", "", "optional YAML file of additional sensor profiles")
	logTimestampFormat := pflag.String("log-timestamp-format", "", "strftime format prefixing connection lifecycle log lines")
	mdnsAdvertise := pflag.Bool("mdns", false, "advertise the rotation feed over mDNS/DNS-SD")
	resetGPIOChip := pflag.String("reset-gpio-chip", "", "optional gpiochip device used to pulse-reset the microcontroller before connecting")
	resetGPIOLine := pflag.Int("reset-gpio-line", 0, "gpio line offset on --reset-gpio-chip")
	verbose := pflag.CountP("verbose", "v", "increase log verbosity (repeatable)")
	quiet := pflag.CountP("quiet", "q", "decrease log verbosity (repeatable)")
	help := pflag.Bool("help", false, "display this help text")

	pflag.Usage = usage
	pflag.Parse()

	if *help {
		pflag.Usage()
		return 0
	}

	if pflag.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "error: expected 4 positional arguments: device baud host port")
		pflag.Usage()
		return 2
	}

	baud, err := strconv.Atoi(pflag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid baud rate %q: %v\n", pflag.Arg(1), err)
		return 2
	}
	port, err := strconv.Atoi(pflag.Arg(3))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid port %q: %v\n", pflag.Arg(3), err)
		return 2
	}

	east, err := orbit.ParseAxisSpec(*eastAxis)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	north, err := orbit.ParseAxisSpec(*northAxis)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	up, err := orbit.ParseAxisSpec(*upAxis)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	orientation := orbit.Orientation{East: east, North: north, Up: up}
	if err := orbit.ValidateOrientation(orientation); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	if err := orbit.ConfigureLogging(*verbose-*quiet, *logTimestampFormat); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid --log-timestamp-format:", err)
		return 2
	}

	registry := orbit.NewRegistry()
	if *sensorProfiles != "" {
		f, err := os.Open(*sensorProfiles)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: opening --sensor-profiles:", err)
			return 2
		}
		err = registry.LoadYAML(f)
		_ = f.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: loading --sensor-profiles:", err)
			return 2
		}
	}

	cfg := orbit.Config{
		Device:              pflag.Arg(0),
		Baud:                baud,
		Host:                pflag.Arg(2),
		Port:                port,
		SensorType:          *sensorType,
		Orientation:         orientation,
		TimeWindowMS:        *timeWindowMS,
		TimeIntervalMS:      *timeIntervalMS,
		TimeDeltaMS:         *timeDeltaMS,
		AnalysisWorkers:     *analysisWorkers,
		Graph:               *graph,
		SonifyAudio:         *sonify,
		SensorProfilesFile:  *sensorProfiles,
		LogTimestampFormat:  *logTimestampFormat,
		ResetGPIOChip:       *resetGPIOChip,
		ResetGPIOLine:       *resetGPIOLine,
		MDNSAdvertise:       *mdnsAdvertise,
		Verbosity:           *verbose - *quiet,
	}

	orchestrator, err := orbit.NewOrchestrator(cfg, registry)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	if err := orchestrator.Run(ctx); err != nil {
		if errors.Is(err, orbit.ErrDeviceNotReady) {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 3
	}
	return 0
}
