package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go2tv.app/rokucast/cast"
	"go2tv.app/rokucast/coordinator"
	"go2tv.app/rokucast/device"
	"go2tv.app/rokucast/dispatch"
	"go2tv.app/rokucast/ecp"
	"go2tv.app/rokucast/interactive"
)

var (
	//go:embed version.txt
	version string

	errNoflag = errors.New("no flag used")

	targetPtr   = flag.String("t", "", "IP or hostname of the target device.")
	keyArg      = flag.String("k", "", "Send a single remote key press (e.g. Home, Play, VolumeUp).")
	launchArg   = flag.String("launch", "", "Launch an app by its id.")
	playArg     = flag.String("play", "", "Deep-link play: \"appId,contentId[,key=value...]\".")
	urlArg      = flag.String("u", "", "HTTP URL to a media file to play directly on the device.")
	castArg     = flag.String("cast", "", "HTTP URL of a stream to cast via the companion receiver. Blocks until interrupted.")
	formatArg   = flag.String("format", "hls", "Stream format tag passed to the receiver when casting.")
	receiverArg = flag.String("receiver", cast.DefaultReceiverApp, "App id of the companion receiver.")
	searchArg   = flag.String("search", "", "Open the device search screen with the given keyword.")
	appsPtr     = flag.Bool("apps", false, "List the installed apps.")
	infoPtr     = flag.Bool("info", false, "Print device info and current state.")
	monitorPtr  = flag.Bool("monitor", false, "Start the interactive remote-control terminal.")
	debugPtr    = flag.Bool("debug", false, "Log protocol traffic to stderr.")
	versionPtr  = flag.Bool("version", false, "Print version.")
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errNoflag) {
			flag.Usage()
			os.Exit(0)
		}

		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	exitCTX, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flag.Parse()

	if *versionPtr {
		fmt.Println(strings.TrimSpace(version))
		return nil
	}

	if flag.NFlag() == 0 {
		return errNoflag
	}

	if *targetPtr == "" {
		return errors.New("no target device, use -t")
	}

	var logOutput io.Writer
	if *debugPtr {
		logOutput = os.Stderr
	}

	client := ecp.NewClient(*targetPtr, ecp.WithLogOutput(logOutput))
	identity := device.Identity{Host: *targetPtr, Port: device.DefaultControlPort}

	coord := coordinator.New(identity, client, coordinator.Config{})
	coord.LogOutput = logOutput

	dispatcher := dispatch.New(client, coord)
	dispatcher.LogOutput = logOutput

	switch {
	case *keyArg != "":
		return dispatcher.Keypress(exitCTX, *keyArg)

	case *launchArg != "":
		return dispatcher.Launch(exitCTX, *launchArg)

	case *playArg != "":
		return dispatcher.PlayContent(exitCTX, *playArg)

	case *urlArg != "":
		return dispatcher.PlayURL(exitCTX, *urlArg)

	case *searchArg != "":
		return dispatcher.Search(exitCTX, *searchArg)

	case *appsPtr:
		return listApps(exitCTX, dispatcher)

	case *infoPtr:
		return printInfo(exitCTX, coord)

	case *monitorPtr:
		return monitor(exitCTX, coord, dispatcher)

	case *castArg != "":
		return runCast(exitCTX, identity, coord, logOutput)
	}

	return errNoflag
}

func listApps(ctx context.Context, dispatcher *dispatch.Dispatcher) error {
	apps, err := dispatcher.Apps(ctx)
	if err != nil {
		return err
	}

	for _, app := range apps {
		fmt.Printf("%-12s %s\n", app.ID, app.Name)
	}

	return nil
}

func printInfo(ctx context.Context, coord *coordinator.Coordinator) error {
	state, err := coord.ForceRefresh(ctx)
	if err != nil {
		return err
	}

	if info := coord.Info(); info != nil {
		fmt.Printf("Model:    %s (%s)\n", info.ModelName, info.ModelNumber)
		fmt.Printf("Serial:   %s\n", info.SerialNumber)
		fmt.Printf("Firmware: %s\n", info.SoftwareVersion)
	}

	fmt.Printf("Power:    %s\n", state.Power)
	fmt.Printf("Playback: %s\n", state.Playback)

	if state.AppName != "" {
		fmt.Printf("App:      %s (%s)\n", state.AppName, state.AppID)
	}

	if state.Position != nil && state.Duration != nil {
		fmt.Printf("Position: %s / %s\n", state.Position.Round(time.Second), state.Duration.Round(time.Second))
	}

	return nil
}

func monitor(ctx context.Context, coord *coordinator.Coordinator, dispatcher *dispatch.Dispatcher) error {
	runCTX, cancel := context.WithCancel(ctx)
	defer cancel()

	go coord.Run(runCTX)

	scr, err := interactive.InitTcellNewScreen()
	if err != nil {
		return err
	}

	name := coord.Identity().Host
	if info := coord.Info(); info != nil && info.FriendlyName != "" {
		name = info.FriendlyName
	}

	scr.InterInit(runCTX, coord, dispatcher, name)

	return nil
}

func runCast(ctx context.Context, identity device.Identity, coord *coordinator.Coordinator, logOutput io.Writer) error {
	// The receiver can take a few seconds to come up, so the cast
	// commands go through a retrying client.
	castClient := ecp.NewClient(identity.Host, ecp.WithRetries(3), ecp.WithLogOutput(logOutput))

	manager := cast.NewManager(identity, castClient, cast.WithReceiverApp(*receiverArg), cast.WithLogOutput(logOutput))
	coord.OnRefresh(manager.Reconcile)

	runCTX, cancel := context.WithCancel(ctx)
	defer cancel()

	go coord.Run(runCTX)

	session, err := manager.Start(ctx, *castArg, *formatArg)
	if err != nil {
		return err
	}

	fmt.Printf("Casting %s to %s. Press Ctrl+C to stop.\n", session.StreamURL, identity.Host)

	<-ctx.Done()

	// The exit context is already cancelled here; the stop command
	// gets its own deadline.
	stopCTX, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	return manager.Stop(stopCTX)
}
