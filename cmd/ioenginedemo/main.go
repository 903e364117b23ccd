// Command ioenginedemo mounts a directory through the asynchronous I/O
// engine as a FUSE filesystem, exercising every layer end to end: engine
// config loading, the worker pool, the syscall dispatch table, and the
// FUSE frontend.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"

	"github.com/asyncfs/ioengine/engineconfig"
	"github.com/asyncfs/ioengine/fusefront"
	"github.com/asyncfs/ioengine/logctx"
)

func main() {
	var (
		configFile = flag.String("config", "", "Engine configuration file path")
		preset     = flag.String("preset", "", "Engine preset: default, low-latency, batch (overrides config file)")
		root       = flag.String("root", "", "Directory to expose through the engine")
		mountPoint = flag.String("mount", "", "FUSE mount point")
		debug      = flag.Bool("debug", false, "Enable FUSE debug logging")
	)
	flag.Parse()

	if *root == "" || *mountPoint == "" {
		log.Fatal("both -root and -mount are required")
	}

	cfg, err := loadEngineConfig(*configFile, *preset)
	if err != nil {
		log.Fatalf("ioenginedemo: loading config: %v", err)
	}

	host, err := fusefront.NewHost(cfg)
	if err != nil {
		log.Fatalf("ioenginedemo: starting engine: %v", err)
	}
	defer host.Close()

	fsys := fusefront.NewFileSystem(host, *root)
	nfs := pathfs.NewPathNodeFs(fsys, nil)
	connector := nodefs.NewFileSystemConnector(nfs.Root(), nil)
	server, err := fuse.NewServer(connector.RawFS(), *mountPoint, &fuse.MountOptions{Debug: *debug})
	if err != nil {
		log.Fatalf("ioenginedemo: mounting at %s: %v", *mountPoint, err)
	}

	go server.Serve()
	if err := server.WaitMount(); err != nil {
		log.Fatalf("ioenginedemo: waiting for mount: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Unmount(); err != nil {
		log.Printf("ioenginedemo: unmount %s: %v", *mountPoint, err)
	}
}

func loadEngineConfig(configFile, preset string) (*engineconfig.Config, error) {
	if preset != "" {
		return engineconfig.GetPreset(preset)
	}
	return engineconfig.Load(configFile)
}

func init() {
	logctx.InitGlobal(logctx.DefaultConfig())
}
