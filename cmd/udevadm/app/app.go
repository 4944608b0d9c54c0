/*
Copyright 2026 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/component-base/cli/flag"
	"sigs.k8s.io/yaml"

	"github.com/deckhouse/udev-devd/pkg/cli"
	"github.com/deckhouse/udev-devd/pkg/hwdb"
	"github.com/deckhouse/udev-devd/pkg/logger"
	"github.com/deckhouse/udev-devd/pkg/udev"
)

const (
	DevRootEnv  = "UDEV_DEV_ROOT"
	HwdbPathEnv = "UDEV_HWDB_PATH"
)

const long = `
	udevadm queries devices the way libudev clients see them: device nodes
	under the device root, network interfaces and the hardware database.
`

func NewUdevadmCommand() *cobra.Command {
	o := newRootOptions()

	cmd := &cobra.Command{
		Use:           "udevadm",
		Short:         "udev device database tool",
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			o.Complete()
		},
	}

	fs := cmd.PersistentFlags()
	for _, f := range o.NamedFlags().FlagSets {
		fs.AddFlagSet(f)
	}

	cmd.AddCommand(
		NewInfoCommand(o),
		NewEnumerateCommand(o),
		NewMonitorCommand(o),
		NewHwdbCommand(o),
	)

	return cmd
}

type rootOptions struct {
	DevRoot        string
	HwdbPath       string
	LinksInHostNet bool

	logging *logger.Options
	printer *printOptions
}

func newRootOptions() *rootOptions {
	return &rootOptions{
		logging: logger.NewOptions(),
		printer: &printOptions{},
	}
}

func (o *rootOptions) NamedFlags() (fs flag.NamedFlagSets) {
	ufs := fs.FlagSet("udev")
	ufs.StringVar(&o.DevRoot, "dev-root", cli.GetStringEnv(DevRootEnv, udev.DefaultDevRoot), "Directory device nodes are looked up in")
	ufs.StringVar(&o.HwdbPath, "hwdb", cli.GetStringEnv(HwdbPathEnv, hwdb.DefaultPath), "Compiled hardware database, empty disables it")
	ufs.BoolVar(&o.LinksInHostNet, "links-host-netns", false, "List network interfaces of the host network namespace")

	o.logging.AddFlags(fs.FlagSet("logging"))
	o.printer.AddFlags(fs.FlagSet("output"))

	return fs
}

func (o *rootOptions) Complete() {
	log := o.logging.Complete()
	logger.SetDefaultLogger(log)
}

// NewUdev builds the device context for a command. The returned func
// releases it.
func (o *rootOptions) NewUdev() (*udev.Udev, func(), error) {
	opts := []udev.Option{
		udev.WithDevRoot(o.DevRoot),
		udev.WithHwdbPath(o.HwdbPath),
		udev.WithLogger(slog.Default()),
	}

	closeLinks := func() {}
	if o.LinksInHostNet {
		links, closer, err := newHostLinkSource()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, udev.WithLinkSource(links))
		closeLinks = closer
	}

	u := udev.New(opts...)
	return u, func() {
		if err := u.Close(); err != nil {
			slog.Warn("failed to close udev", slog.String("error", err.Error()))
		}
		closeLinks()
	}, nil
}

type printOptions struct {
	output string
}

func (o *printOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.output, "output", "o", "json", "Output format")
}

func (o *printOptions) PrintObject(cmd *cobra.Command, data interface{}) error {
	switch o.output {
	case "json":
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	default:
		return fmt.Errorf("unsupported format %q. Supported formats: [json, yaml]", o.output)
	}
}
