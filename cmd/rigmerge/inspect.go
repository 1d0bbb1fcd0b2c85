package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rig-merger/internal/humanoid"
	"rig-merger/internal/scene"
	"rig-merger/internal/scenefile"
)

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <scene-file>...",
		Short: "Print the objects, bones and humanoid slots of scene files",
		Long: `Inspect loads each scene file on its own and prints its object tree, the
bones of every armature and the bones picked for each humanoid spine slot.

Examples:
  rigmerge inspect head.yaml body.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			for _, name := range args {
				sc := scene.New()
				path := cfg.ScenePath(name)
				if _, err := scenefile.ImportFile(sc, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n", path)
				inspect(cmd.OutOrStdout(), sc)
			}
			return nil
		},
	}
}

func inspect(w io.Writer, sc *scene.Scene) {
	for _, root := range sc.Roots() {
		printObject(w, root, 0)
	}
}

func printObject(w io.Writer, obj *scene.Object, depth int) {
	indent := strings.Repeat("  ", depth)
	t := obj.World().Translation()
	fmt.Fprintf(w, "%s%s (%s) at (%.3f, %.3f, %.3f)\n", indent, obj.Name, obj.Kind, t[0], t[1], t[2])

	switch obj.Kind {
	case scene.KindArmature:
		printArmature(w, obj.Armature, indent+"  ")
	case scene.KindMesh:
		m := obj.Mesh
		bound := "-"
		if m.Armature != nil {
			bound = m.Armature.Name
		}
		fmt.Fprintf(w, "%s  vertices: %d  groups: %d  armature: %s\n", indent, len(m.Vertices), len(m.Groups()), bound)
	}

	for _, c := range obj.Children() {
		printObject(w, c, depth+1)
	}
}

func printArmature(w io.Writer, arm *scene.Armature, indent string) {
	fmt.Fprintf(w, "%sbones: %d\n", indent, arm.Len())
	for _, b := range arm.Bones() {
		parent := "-"
		if b.Parent >= 0 {
			parent = arm.Bone(b.Parent).Name
		}
		flag := ""
		if !b.Deform {
			flag = "  (no deform)"
		}
		length := b.Tail.Sub(b.Head).Len()
		fmt.Fprintf(w, "%s  %-24s parent: %-20s len: %.3f%s\n", indent, b.Name, parent, length, flag)
	}

	slots := humanoid.IndexSlots(arm)
	var parts []string
	for _, s := range humanoid.Canonical {
		if name, ok := slots[s]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", s, name))
		}
	}
	if len(parts) == 0 {
		parts = []string{"none"}
	}
	fmt.Fprintf(w, "%sslots: %s\n", indent, strings.Join(parts, " "))
}
