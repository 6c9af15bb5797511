package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/westphae/goecompass/ahrsweb"
	"github.com/westphae/goecompass/internal/config"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:        "serve",
		SuggestFor: []string{"ser", "start"},
		Short:      "serve streams compass readings to websocket clients",
		Long: `serve polls the LSM303DLHC and streams every reading with its attitude to
websocket clients on /ahrsweb. The sensor registry is available on /api/saul.`,
		Example: "  lsm303 serve --port 8000 --interface 0.0.0.0",
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
	cmd.Flags().IntP("port", "p", config.DefaultAPIPort, "port that the server listens on")
	cmd.Flags().StringP("interface", "i", config.DefaultAPIInterface, "interface that the server listens on")
	cmd.Flags().String("calibration", "", "magnetometer calibration file")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	reg, err := registry(s.dev)
	if err != nil {
		return err
	}

	room := ahrsweb.NewRoom()
	go room.Run()
	defer room.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go ahrsweb.NewListener(room, s.dev, s.calibration(), s.interval()).Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.opt.API.Interface, s.opt.API.Port),
		Handler: ahrsweb.NewRouter(room, reg),
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("serving on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Infoln("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
