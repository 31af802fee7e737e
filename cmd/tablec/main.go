// Command tablec converts decision tables between formats. It reads .json,
// .parquet or .onnx (the model is evaluated once over every state) and writes
// .json or .parquet.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brensch/snek8/config"
	"github.com/brensch/snek8/policy"
	"github.com/brensch/snek8/rules"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	in := flag.String("in", "", "Input table (.json, .parquet or .onnx). Empty starts from the heuristic table")
	out := flag.String("out", "", "Output table (.json or .parquet)")
	inputName := flag.String("onnx-input", config.GetEnvOrDefault("ONNX_INPUT", policy.DefaultONNXConfig.InputName), "ONNX input tensor name")
	outputName := flag.String("onnx-output", config.GetEnvOrDefault("ONNX_OUTPUT", policy.DefaultONNXConfig.OutputName), "ONNX output tensor name")
	show := flag.Bool("show", false, "Print the chosen action for every state")
	flag.Parse()

	if *out == "" && !*show {
		fmt.Fprintln(os.Stderr, "tablec: -out or -show is required")
		flag.Usage()
		os.Exit(2)
	}

	var (
		table *policy.Table
		err   error
	)
	switch {
	case *in == "":
		table = policy.Heuristic()
	case isONNX(*in):
		table, err = policy.CompileONNX(*in, policy.ONNXConfig{InputName: *inputName, OutputName: *outputName})
	default:
		table, err = policy.Load(*in)
	}
	if err != nil {
		log.Fatalf("Failed to read table: %v", err)
	}

	if *show {
		for state := 0; state < rules.NumStates; state++ {
			p := rules.PerceptionFromIndex(state)
			best := table.Best(state)
			fmt.Printf("%3d dir=%s food=%s best=%-5s %v\n", state, p.DirectionBits(), p.FoodBits(), rules.MoveName(best), table.Scores(state))
		}
	}

	if *out != "" {
		if err := policy.Save(*out, table); err != nil {
			log.Fatalf("Failed to write table: %v", err)
		}
		log.Printf("Wrote %s", *out)
	}
}

func isONNX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".onnx")
}
