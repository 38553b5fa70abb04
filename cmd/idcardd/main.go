// Package main runs the idcard gRPC daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/idcard-reader/internal/app"
	"github.com/joseph-ayodele/idcard-reader/internal/common"
	"github.com/joseph-ayodele/idcard-reader/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idcardd",
		Short: "Serve identity card extraction over gRPC",
		Long: `idcardd exposes Process, GetDocument, ListDocuments and ExportDocuments
on idcard.v1.IDCardService, plus the standard health and reflection
services. Processed documents are stored in the configured database
unless --no-store is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringP("config", "c", "", "Configuration file path")
	cmd.Flags().String("addr", "", "Listen address (default from GRPC_ADDR)")
	cmd.Flags().Bool("no-store", false, "Do not persist processed documents")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := common.LoadConfig(path)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.GRPCAddr = addr
	}
	logger := common.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		opts = append(opts, app.WithStore())
	}
	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.DB != nil {
		if err := a.DB.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
			return err
		}
		logger.Info("DB health OK", "driver", a.DB.Driver)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(server.UnaryLogging(logger)),
		// base64 in a Struct string inflates the image by a third
		grpc.MaxRecvMsgSize(server.DefaultMaxImageBytes*2),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	server.RegisterIDCardServer(grpcServer, server.NewIDCardService(a.Processor, a.Documents, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("grpc serve: %w", err)
	}

	logger.Info("shutting down...")
	hs.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("stopped")
	return nil
}
