package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/processor"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input    string  `short:"i" long:"in"       description:"Input GeoJSON or flat JSON location list. Reads from stdin if empty"`
	Output   string  `short:"o" long:"out"      description:"Output file path. Writes to stdout if empty"`
	Format   string  `short:"f" long:"format"   description:"Output format" choice:"json" choice:"yaml" default:"yaml"`
	Altitude float64 `short:"a" long:"altitude" description:"Altitude for points without a third coordinate" default:"1.2"`
	NoLabels bool    `short:"L" long:"no-labels" description:"Drop feature names so pins are planted without label, top and smoke"`
}

type pinsSection struct {
	Pins []config.Pin `yaml:"pins" json:"pins"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Altitude <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --altitude must be > 0")
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	locs, err := processor.ParseLocations(inputData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing locations: %v\n", err)
		os.Exit(1)
	}

	section := pinsSection{Pins: toPins(locs, opts.Altitude, opts.NoLabels)}

	var outputData []byte
	if opts.Format == "json" {
		outputData, err = json.MarshalIndent(section, "", "  ")
	} else {
		outputData, err = yaml.Marshal(section)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d locations to %s (format: %s)\n", len(section.Pins), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

func toPins(locs []geo.Location, altitude float64, noLabels bool) []config.Pin {
	pins := make([]config.Pin, 0, len(locs))
	for _, l := range locs {
		p := config.Pin{Lat: l.Lat, Lon: l.Lon, Text: l.Name, Altitude: l.Altitude}
		if p.Altitude == 0 {
			p.Altitude = altitude
		}
		if noLabels {
			p.Text = ""
		}
		pins = append(pins, p)
	}
	return pins
}
