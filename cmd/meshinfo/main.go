// meshinfo is a CLI utility for inspecting mesh files and their GPU layout.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu/gputest"
	"github.com/Faultbox/midgard-fx/internal/engine/mesh"
	"github.com/Faultbox/midgard-fx/internal/engine/meshload"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "upload":
		err = cmdUpload(args)
	case "manifest":
		err = cmdManifest(args)
	case "formats":
		for _, f := range meshload.DefaultRegistry.Formats() {
			fmt.Println(f)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(usage)
}

const usage = `meshinfo - mesh file inspector

Usage:
  meshinfo <command> [options]

Commands:
  info [-i index] [-z] [-w] [-uv] <file>   Show counts and bounds of the meshes in a file
  upload [-i index] <file>                 Dry run: upload to an in-memory recording device
                                           (no GPU is touched) and list the buffers it would create
  manifest <meshes.yaml>                   Load every mesh named by a manifest
  formats                                  List supported file formats

Examples:
  meshinfo info model.obj
  meshinfo info -i 1 -z scene.obj
  meshinfo upload model.obj`

// fileFlags are shared by the commands that read one mesh file.
type fileFlags struct {
	fs      *flag.FlagSet
	index   *int
	invertZ *bool
	winding *bool
	flipUVs *bool
}

func newFileFlags(name string) *fileFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &fileFlags{
		fs:      fs,
		index:   fs.Int("i", -1, "Only the mesh at this index (-1 = all)"),
		invertZ: fs.Bool("z", false, "Invert the Z axis"),
		winding: fs.Bool("w", false, "Invert triangle winding"),
		flipUVs: fs.Bool("uv", false, "Flip texture V coordinates"),
	}
}

func (f *fileFlags) load(args []string) ([]*mesh.Mesh, error) {
	f.fs.Parse(args)
	if f.fs.NArg() < 1 {
		return nil, fmt.Errorf("missing file argument")
	}
	path := f.fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := meshload.Format(strings.TrimPrefix(filepath.Ext(path), "."))
	opts := meshload.Options{InvertZ: *f.invertZ, InvertWinding: *f.winding, FlipUVs: *f.flipUVs}

	if *f.index >= 0 {
		m, err := meshload.FromMemory(data, format, *f.index, opts)
		if err != nil {
			return nil, err
		}
		return []*mesh.Mesh{m}, nil
	}
	return meshload.AllFromMemory(data, format, opts)
}

func cmdInfo(args []string) error {
	meshes, err := newFileFlags("info").load(args)
	if err != nil {
		return err
	}
	for i, m := range meshes {
		printMesh(i, m)
	}
	return nil
}

func printMesh(i int, m *mesh.Mesh) {
	positions, _ := m.Positions()
	normals, _ := m.Normals()
	triangles, _ := m.Triangles()
	sets, _ := m.TexcoordSetCount()
	lo, hi := m.BoundingBox()

	fmt.Printf("Mesh %d: %s\n", i, m.Source.Path)
	fmt.Printf("  Vertices:  %d\n", len(positions))
	fmt.Printf("  Normals:   %d\n", len(normals))
	fmt.Printf("  UV sets:   %d\n", sets)
	fmt.Printf("  Triangles: %d\n", len(triangles))
	fmt.Printf("  Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
}

// cmdUpload replays the upload against gputest.Recorder. Nothing reaches a
// real GPU; the output is the buffer list a GL upload would create.
func cmdUpload(args []string) error {
	meshes, err := newFileFlags("upload").load(args)
	if err != nil {
		return err
	}

	dev := gputest.New()
	for i, m := range meshes {
		if err := m.UploadToGPU(dev, false); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
		fmt.Printf("Mesh %d: %s\n", i, m.Source.Path)
	}

	var total int
	for _, c := range dev.CallsOf("CreateBuffer") {
		desc := c.Args[1].(gpu.BufferDesc)
		total += desc.Size
		fmt.Printf("  %-22s %8d bytes\n", desc.Label, desc.Size)
	}
	fmt.Printf("Buffers: %d, views: %d, total %.2f KB\n", dev.LiveBuffers(), dev.LiveViews(), float64(total)/1024)
	return nil
}

func cmdManifest(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: meshinfo manifest <meshes.yaml>")
	}
	manifest, err := meshload.LoadManifest(args[0])
	if err != nil {
		return err
	}
	meshes, err := manifest.Load(meshload.DefaultRegistry)
	if err != nil {
		return err
	}
	for i, m := range meshes {
		printMesh(i, m)
	}
	return nil
}
