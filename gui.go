package main

import (
	"context"
	"fmt"

	"codebug/config"
	"codebug/console"

	"github.com/jroimartin/gocui"
)

func serveGui(ctx context.Context, cfg config.Config) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("couldn't create gui: %w", err)
	}
	defer g.Close()

	rows := cfg.RowCount()
	g.SetManagerFunc(func(g *gocui.Gui) error {
		return layout(g, rows)
	})
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := console.NewGui(g)
	done := make(chan error, 1)
	go func() {
		err := run(ctx, cfg, c, c)
		done <- err
		// leave the main loop when serving stops on its own
		g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
	}()
	go func() {
		<-ctx.Done()
		g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
	}()

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		cancel()
		<-done
		return err
	}
	cancel()
	return <-done
}

// gocui layout: matrix on the left, status log filling the rest
func layout(g *gocui.Gui, rows int) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(console.MatrixView, 0, 0, console.Width+3, rows+1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "CodeBug"
	}

	if v, err := g.SetView(console.StatusView, console.Width+4, 0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Autoscroll = true
		v.Wrap = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
