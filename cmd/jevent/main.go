// Command jevent converts calendar events between ICS files and their JSON
// representation.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ics "github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calens/go-jevent"
	jeventical "github.com/calens/go-jevent/ical"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jevent",
		Short:         "Convert calendar events between ICS and JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	viper.SetConfigName("jevent")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.config/jevent")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("JEVENT")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	root.PersistentFlags().String("prodid", "", "product identifier stamped on emitted calendars")
	_ = viper.BindPFlag("prodid", root.PersistentFlags().Lookup("prodid"))

	root.AddCommand(newDecodeCmd(), newEncodeCmd())
	return root
}

func newCodec() *jeventical.Codec {
	codec := jeventical.NewCodec()
	if prodID := viper.GetString("prodid"); prodID != "" {
		codec.ProdID = prodID
	}
	return codec
}

func newDecodeCmd() *cobra.Command {
	var props []string
	cmd := &cobra.Command{
		Use:   "decode <file.ics>",
		Short: "Decode an ICS file to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			cal, err := ics.NewDecoder(f).Decode()
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			var filter jeventical.PropsFilter
			if len(props) > 0 {
				var fields []string
				for _, p := range props {
					fields = append(fields, strings.Split(p, ",")...)
				}
				filter = jeventical.NewPropsFilter(fields...)
			}
			event, err := newCodec().Decode(cal, filter, nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(event)
		},
	}
	cmd.Flags().StringSliceVar(&props, "props", nil, "comma-separated list of event fields to decode")
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var priorPath, uid string
	cmd := &cobra.Command{
		Use:   "encode <file.json>",
		Short: "Encode a JSON event to ICS on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var event jevent.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			var prior *ics.Calendar
			if priorPath != "" {
				f, err := os.Open(priorPath)
				if err != nil {
					return err
				}
				defer f.Close()
				prior, err = ics.NewDecoder(f).Decode()
				if err != nil {
					return fmt.Errorf("parse %s: %w", priorPath, err)
				}
			}
			if uid == "" && event.UID == "" && prior == nil {
				uid = uuid.NewString()
			}

			cal, err := newCodec().Encode(&event, prior, uid, nil)
			if err != nil {
				return err
			}
			return ics.NewEncoder(cmd.OutOrStdout()).Encode(cal)
		},
	}
	cmd.Flags().StringVar(&priorPath, "prior", "", "prior ICS file; takes the update path and advances the sequence")
	cmd.Flags().StringVar(&uid, "uid", "", "uid for the encoded event; generated when absent")
	return cmd
}
