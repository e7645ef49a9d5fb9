// Package main provides the remote control for a running xiamibox.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/xiamibox/internal/api/ipc"
)

var (
	app     = kingpin.New("xiamictl", "Remote control for a running xiamibox")
	timeout = app.Flag("timeout", "Request timeout").Default("5s").Duration()

	playCmd      = app.Command("play", "Start playback")
	pauseCmd     = app.Command("pause", "Pause playback")
	playPauseCmd = app.Command("playpause", "Toggle playback")
	nextCmd      = app.Command("next", "Skip to the next track")
	previousCmd  = app.Command("previous", "Go back to the previous track")
	showCmd      = app.Command("show", "Show and focus the player window")
	hideCmd      = app.Command("hide", "Hide the player window")
	closeCmd     = app.Command("close", "Close the player window (it keeps playing hidden)")
	statusCmd    = app.Command("status", "Print window, playback and now-playing state")
	quitCmd      = app.Command("quit", "Quit the player")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := ipc.Connect(ctx)
	if err != nil {
		fmt.Printf("Error: xiamibox is not running (%v)\n", err)
		os.Exit(1)
	}

	actions := map[string]func(context.Context) error{
		playCmd.FullCommand():      client.Play,
		pauseCmd.FullCommand():     client.Pause,
		playPauseCmd.FullCommand(): client.PlayPause,
		nextCmd.FullCommand():      client.Next,
		previousCmd.FullCommand():  client.Previous,
		showCmd.FullCommand():      client.Show,
		hideCmd.FullCommand():      client.Hide,
		closeCmd.FullCommand():     client.Close,
		quitCmd.FullCommand():      client.Quit,
	}

	if command == statusCmd.FullCommand() {
		printStatus(ctx, client)
		return
	}

	if err := actions[command](ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, client *ipc.Client) {
	st, err := client.Status(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Window:  %s\n", visibility(st.Visible))
	fmt.Printf("State:   %s\n", st.State)
	if st.Track == nil {
		fmt.Println("Track:   -")
		return
	}
	fmt.Printf("Track:   %s (%s)\n", st.Track.Name, st.Track.ID)
	fmt.Printf("Artist:  %s\n", st.Track.Artist)
	fmt.Printf("Album:   %s\n", st.Track.Album)
}

func visibility(v bool) string {
	if v {
		return "visible"
	}
	return "hidden"
}
