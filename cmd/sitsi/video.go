package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fusion-imaging/sitsi/internal/video"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Inspect camera video files",
}

var videoInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print dimensions, time range and metadata of a camera video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := video.Load(args[0])
		if err != nil {
			return err
		}

		c := v.Frames
		fmt.Printf("frames:  %d (%d x %d pixels)\n", c.NFrames, c.Rows, c.Cols)
		if len(v.Times) > 0 {
			fmt.Printf("time:    %g .. %g s\n", v.Times[0], v.Times[len(v.Times)-1])
		}

		maxima, err := v.ComputeTrueMaxima()
		if err != nil {
			return err
		}
		peak := 0.0
		for _, m := range maxima {
			if m > peak {
				peak = m
			}
		}
		fmt.Printf("peak:    %g\n", peak)

		if len(v.Info) > 0 {
			keys := make([]string, 0, len(v.Info))
			for k := range v.Info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println("info:")
			for _, k := range keys {
				vals := v.Info[k]
				if len(vals) == 1 {
					fmt.Printf("  %s = %g\n", k, vals[0])
				} else {
					fmt.Printf("  %s = %d values\n", k, len(vals))
				}
			}
		}
		return nil
	},
}

func init() {
	videoCmd.AddCommand(videoInfoCmd)
	rootCmd.AddCommand(videoCmd)
}
