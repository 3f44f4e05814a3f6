// Command obstaclevis converts, inspects and draws obstacle annotation files.
package main

import (
	"ObstacleVisServer/client"
	"ObstacleVisServer/codec"
	"ObstacleVisServer/config"
	"ObstacleVisServer/engine"
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/planning"
	"ObstacleVisServer/typemap"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/akamensky/argparse"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	for _, w := range cfg.Normalize() {
		logger.Log().Warn(w)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer) error {
	parser := argparse.NewParser("obstaclevis", "Obstacle annotation tools")
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML config file"})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Debug logging"})

	renderCmd := parser.NewCommand("render", "Draw detections and ground truth on an image")
	renderImage := renderCmd.String("i", "image", &argparse.Options{Help: "Input image", Required: true})
	renderDet := renderCmd.String("d", "detections", &argparse.Options{Help: "Detection file"})
	renderGT := renderCmd.String("g", "groundtruth", &argparse.Options{Help: "Ground truth file"})
	renderOut := renderCmd.String("o", "output", &argparse.Options{Help: "Output image", Required: true})

	convertCmd := parser.NewCommand("convert", "Convert a ground truth file to the detection format")
	convertIn := convertCmd.String("i", "input", &argparse.Options{Help: "Ground truth file", Required: true})
	convertOut := convertCmd.String("o", "output", &argparse.Options{Help: "Detection file to write", Required: true})

	classifyCmd := parser.NewCommand("classify", "Map a type label to its category")
	classifyLabel := classifyCmd.String("l", "label", &argparse.Options{Help: "Type label", Required: true})

	inspectCmd := parser.NewCommand("inspect", "Print the records of an annotation file")
	inspectIn := inspectCmd.String("i", "input", &argparse.Options{Help: "Annotation file", Required: true})
	inspectFormat := inspectCmd.Selector("f", "format", []string{"detection", "groundtruth"},
		&argparse.Options{Help: "File format", Default: "detection"})

	remoteCmd := parser.NewCommand("remote", "Use the HTTP API of a running server")
	remoteServer := remoteCmd.String("s", "server", &argparse.Options{Help: "Server URL", Default: "http://localhost:8080"})
	remoteImage := remoteCmd.String("i", "image", &argparse.Options{Help: "Image to render; ping only when empty"})
	remoteDet := remoteCmd.String("d", "detections", &argparse.Options{Help: "Detection file"})
	remoteGT := remoteCmd.String("g", "groundtruth", &argparse.Options{Help: "Ground truth file"})
	remoteOut := remoteCmd.String("o", "output", &argparse.Options{Help: "Output image", Default: "rendered.jpg"})

	if err := parser.Parse(args); err != nil {
		return errors.New(parser.Usage(err))
	}
	mode := "production"
	if *verbose {
		mode = "development"
	}
	if err := logger.Init(mode); err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	switch {
	case renderCmd.Happened():
		annotator, err := engine.FromConfig(cfg.EngineConfig())
		if err != nil {
			return err
		}
		defer annotator.Destroy()
		report, err := annotator.AnnotateFiles(*renderImage, *renderDet, *renderGT, *renderOut)
		if err != nil {
			return err
		}
		return printJSON(stdout, report)

	case convertCmd.Happened():
		c := codec.New(cfg.Frame)
		objs, err := c.LoadGroundTruth(*convertIn)
		if err != nil {
			return err
		}
		if err := c.SaveDetections(*convertOut, objs); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %d records to %s\n", len(objs), *convertOut)
		return nil

	case classifyCmd.Happened():
		category := typemap.CategoryFromLabel(*classifyLabel)
		fmt.Fprintf(stdout, "%s -> %s (%s)\n", *classifyLabel, category, typemap.LabelFromCategory(category))
		return nil

	case inspectCmd.Happened():
		format, err := codec.ParseFormat(*inspectFormat)
		if err != nil {
			return err
		}
		objs, stats, err := codec.New(cfg.Frame).Load(format, *inspectIn)
		if err != nil {
			return err
		}
		return inspect(stdout, objs, stats, cfg.Planning)

	case remoteCmd.Happened():
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cl := client.New(*remoteServer)
		if *remoteImage == "" {
			if err := cl.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s is up\n", *remoteServer)
			return nil
		}
		data, id, err := cl.Render(ctx, *remoteImage, *remoteDet, *remoteGT)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*remoteOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "render %s written to %s\n", id, *remoteOut)
		return nil
	}
	return errors.New(parser.Usage("no command given"))
}

func inspect(w io.Writer, objs []*iface.VisualObject, stats codec.Stats, params planning.Params) error {
	fmt.Fprintf(w, "accepted %d, filtered %d, skipped %d\n", stats.Accepted, stats.Filtered, stats.Skipped)
	for _, obj := range objs {
		fmt.Fprintf(w, "%3d %-17s box (%.1f, %.1f)-(%.1f, %.1f) %.2f m in lane: %v\n",
			obj.ID, obj.Category, obj.UpperLeft.X, obj.UpperLeft.Y, obj.LowerRight.X, obj.LowerRight.Y,
			obj.Distance(), params.WithinDecisionHorizon(obj) && params.InLane(obj))
	}
	return printJSON(w, params.Summarize(objs))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
