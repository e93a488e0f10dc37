package process

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
	"gopkg.in/yaml.v2"
)

func init() {
	cobra.MousetrapHelpText = "This is a command line tool.\n\n" +
		"This needs to be run from a Command Prompt.\n"

	// Figure out the executable name.
	exe, err := os.Executable()
	if err == nil {
		cobra.MousetrapHelpText += fmt.Sprintf(
			"Try running \"%s help\" for more information\n", exe)
	}
}

// SaveConfig 把命令的参数写成 config.yaml，隐藏参数和 config-dir 本身不写入。
// overrides 覆盖参数的当前值
func SaveConfig(cmd *cobra.Command, outfile string, overrides map[string]any) error {
	flat := map[string]any{}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "config-dir" || f.Name == "help" {
			return
		}
		flat[f.Name] = flagValue(f)
	})
	for k, v := range overrides {
		flat[k] = v
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nested := yaml.MapSlice{}
	for _, k := range keys {
		nested = setNested(nested, strings.Split(k, "."), flat[k])
	}
	data, err := yaml.Marshal(nested)
	if err != nil {
		return errs.Wrap(err)
	}
	if err = os.MkdirAll(filepath.Dir(outfile), 0o755); err != nil {
		return errs.Wrap(err)
	}
	return atomicWriteFile(outfile, data, 0o600)
}

func flagValue(f *pflag.Flag) any {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	return f.Value.String()
}

// setNested db.max-idle-conn -> db: {max-idle-conn: ...}，keys 已排序
func setNested(m yaml.MapSlice, path []string, val any) yaml.MapSlice {
	if len(path) == 1 {
		return append(m, yaml.MapItem{Key: path[0], Value: val})
	}
	for i := range m {
		if m[i].Key == path[0] {
			if child, ok := m[i].Value.(yaml.MapSlice); ok {
				m[i].Value = setNested(child, path[1:], val)
				return m
			}
		}
	}
	return append(m, yaml.MapItem{Key: path[0], Value: setNested(nil, path[1:], val)})
}

// fileExists checks whether file exists, handle error correctly if it doesn't.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
		log.Fatalf("failed to check for file existence: %v", err)
	}
	return true
}

// atomicWriteFile is a helper to atomically write the data to the outfile.
func atomicWriteFile(outfile string, data []byte, mode os.FileMode) (err error) {
	fh, err := os.CreateTemp(filepath.Dir(outfile), filepath.Base(outfile))
	if err != nil {
		return errs.Wrap(err)
	}
	needsClose, needsRemove := true, true

	defer func() {
		if needsClose {
			err = errs.Combine(err, errs.Wrap(fh.Close()))
		}
		if needsRemove {
			err = errs.Combine(err, errs.Wrap(os.Remove(fh.Name())))
		}
	}()

	if _, err := fh.Write(data); err != nil {
		return errs.Wrap(err)
	}
	if err := fh.Chmod(mode); err != nil {
		return errs.Wrap(err)
	}

	needsClose = false
	if err := fh.Close(); err != nil {
		return errs.Wrap(err)
	}

	if err := os.Rename(fh.Name(), outfile); err != nil {
		return errs.Wrap(err)
	}
	needsRemove = false

	return nil
}
