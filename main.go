// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/hoxca/nightcal/internal"
	"github.com/klauspost/cpuid"
)

const version = "0.1.0"

var config = flag.String("config", "", "load configuration from YAML `file`")
var logFile = flag.String("log", "", "save log output to `file`")
var out = flag.String("out", "", "write calibrated frames to `dir`, default next to the input")
var suffix = flag.String("suffix", "", "append `suffix` to calibrated file names, default _calibrated")
var noWrite = flag.Bool("nowrite", false, "calibrate in memory only, do not write output files")
var keys = flag.String("keys", "", "comma separated header `keys` holding the frame type, default IMAGETYP,FRAMETYP,FRAME")
var memory = flag.Int64("memory", 0, "memory budget in `MiB`, default 70% of physical memory")
var parallel = flag.Int("parallel", 0, "number of light frames calibrated at a time, default from cores and memory")
var port = flag.Int("port", 0, "port for the HTTP server, default 8080")
var target = flag.String("target", "", "archive target `name` for upload and curve")
var ra = flag.Float64("ra", math.NaN(), "right ascension in degrees for target creation, default from header")
var dec = flag.Float64("dec", math.NaN(), "declination in degrees for target creation, default from header")
var user = flag.String("user", "", "archive username, needed without a cached token")
var dryRun = flag.Bool("dryrun", false, "ask the archive to validate uploads without storing them")
var curveOut = flag.String("png", "lightcurve.png", "write the light curve to PNG `file`")
var curveWidth = flag.Int("width", 1024, "light curve width in pixels")
var curveHeight = flag.Int("height", 640, "light curve height in pixels")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Nightcal Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY. This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (calibrate|classify|stats|serve|upload|curve|help) (file1.fits ... filen.fits)

Commands:
  calibrate Build master bias, dark and flat frames from the given files and calibrate the light frames
  classify  Show the frame type of the given files
  stats     Show dimensions and statistics of the given files
  serve     Serve the HTTP API and web frontend
  upload    Upload calibrated frames to the photometry archive
  curve     Download the light curve of a target and render it to PNG
  help      Show this help message

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := internal.LoadConfig(*config)
	if err != nil {
		internal.LogFatal(err)
	}
	applyFlags(cfg)

	if cfg.LogFile != "" {
		if err := internal.LogAlsoToFile(cfg.LogFile); err != nil {
			internal.LogFatalf("Unable to open logfile: %s\n", err)
		}
	}
	defer internal.LogSync()

	internal.LogPrintf("Nightcal v%s Copyright (c) 2020 Markus L. Noga\n", version)
	internal.LogPrintf("Running on %s with %d physical cores, %d logical cores and %d MiB memory\n",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, internal.LogicalCores(), internal.TotalMiBs())

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fileNames, err := internal.GlobFilenameWildcards(args[1:])
	if err != nil {
		internal.LogFatal(err)
	}

	switch args[0] {
	case "calibrate":
		if len(fileNames) == 0 {
			internal.LogFatal("No input files given")
		}
		if _, err := internal.CmdCalibrate(ctx, fileNames, cfg.Calibration); err != nil {
			internal.LogFatalf("Calibration failed: %s\n", err)
		}
	case "classify":
		_, failures := internal.CmdClassify(fileNames, cfg.Calibration.FrameTypeKeys)
		if len(failures) > 0 {
			internal.LogSync()
			os.Exit(2)
		}
	case "stats":
		internal.CmdStats(fileNames, cfg.Calibration.FrameTypeKeys, cfg.Calibration.Parallelism)
	case "serve":
		if err := internal.CmdServe(cfg); err != nil {
			internal.LogFatal(err)
		}
	case "upload":
		p := &internal.UploadParams{Target: *target, RA: *ra, Dec: *dec, Username: cfg.Archive.Username,
			Password: os.Getenv("NIGHTCAL_PASSWORD")}
		if err := internal.CmdUpload(ctx, fileNames, cfg.Archive, p); err != nil {
			internal.LogFatal(err)
		}
	case "curve":
		if *target == "" {
			internal.LogFatal("Target name required")
		}
		err := internal.CmdCurve(ctx, cfg.Archive, cfg.Archive.Username, os.Getenv("NIGHTCAL_PASSWORD"),
			*target, *curveOut, *curveWidth, *curveHeight)
		if err != nil {
			internal.LogFatal(err)
		}
	case "help", "?":
		flag.Usage()
	default:
		internal.LogPrintf("Unknown command '%s'\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

// Override configuration values with flags given on the command line
func applyFlags(cfg *internal.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log":
			cfg.LogFile = *logFile
		case "out":
			cfg.Calibration.Output.OutDir = *out
		case "suffix":
			cfg.Calibration.Output.Suffix = *suffix
		case "nowrite":
			cfg.Calibration.Write = !*noWrite
		case "keys":
			cfg.Calibration.FrameTypeKeys = strings.Split(*keys, ",")
		case "memory":
			cfg.Calibration.Memory = *memory
		case "parallel":
			cfg.Calibration.Parallelism = *parallel
		case "port":
			cfg.Server.Port = *port
		case "user":
			cfg.Archive.Username = *user
		case "dryrun":
			cfg.Archive.DryRun = *dryRun
		}
	})
}
