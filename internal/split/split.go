// Package split copies per-slice image sets into train and test trees so
// that no brain slice contributes files to both sides.
package split

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"turmoric/internal/discovery"
	"turmoric/internal/logger"
)

var ErrTestSize = errors.New("test size must be within [0, 1]")

// SliceID returns the underscore-separated token at index token of the file
// name, or "" when the name has fewer tokens. Files without the token share
// the empty slice id.
func SliceID(filename string, token int) string {
	tokens := strings.Split(filepath.Base(filename), "_")
	if token < 0 || token >= len(tokens) {
		return ""
	}
	return tokens[token]
}

// Partitioner splits BaseDir/<group>/<condition> into TrainDir and TestDir
// with the same layout.
type Partitioner struct {
	BaseDir    string
	TrainDir   string
	TestDir    string
	Groups     []string
	Conditions []string
	TestSize   float64
	Seed       int64
	Token      int

	Logger logger.Logger
}

// Assignment records which slices of one group/condition went where.
type Assignment struct {
	Group       string
	Condition   string
	TrainSlices []string
	TestSlices  []string
	TrainFiles  int
	TestFiles   int
}

type Result struct {
	Assignments []Assignment
}

// Files returns the total number of files copied to each side.
func (r *Result) Files() (train, test int) {
	for _, a := range r.Assignments {
		train += a.TrainFiles
		test += a.TestFiles
	}
	return train, test
}

// Run copies files; sources are never modified. Group/condition pairs
// without a directory are skipped. Each pair is shuffled with a fresh
// generator seeded by Seed, so reruns produce the same split.
func (p *Partitioner) Run(ctx context.Context) (*Result, error) {
	if p.TestSize < 0 || p.TestSize > 1 || math.IsNaN(p.TestSize) {
		return nil, fmt.Errorf("%w: got %g", ErrTestSize, p.TestSize)
	}
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}

	res := &Result{}
	for _, group := range p.Groups {
		for _, condition := range p.Conditions {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			src := filepath.Join(p.BaseDir, group, condition)
			if info, err := os.Stat(src); err != nil || !info.IsDir() {
				log.Debug("Partitioner", "condition directory missing, skipping", map[string]interface{}{
					"path": src,
				})
				continue
			}

			a, err := p.splitOne(ctx, group, condition, src)
			if err != nil {
				return res, err
			}
			log.Info("Partitioner", "condition split", map[string]interface{}{
				"group":        group,
				"condition":    condition,
				"train_slices": len(a.TrainSlices),
				"test_slices":  len(a.TestSlices),
			})
			res.Assignments = append(res.Assignments, *a)
		}
	}
	return res, nil
}

func (p *Partitioner) splitOne(ctx context.Context, group, condition, src string) (*Assignment, error) {
	files, err := discovery.ListFiles(src)
	if err != nil {
		return nil, err
	}

	bySlice := map[string][]string{}
	for _, f := range files {
		id := SliceID(f, p.Token)
		bySlice[id] = append(bySlice[id], f)
	}

	ids := make([]string, 0, len(bySlice))
	for id := range bySlice {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rng := rand.New(rand.NewSource(p.Seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	cut := int(float64(len(ids)) * (1 - p.TestSize))
	a := &Assignment{
		Group:       group,
		Condition:   condition,
		TrainSlices: ids[:cut],
		TestSlices:  ids[cut:],
	}

	trainDir := filepath.Join(p.TrainDir, group, condition)
	testDir := filepath.Join(p.TestDir, group, condition)
	for _, dir := range []string{trainDir, testDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	for _, id := range a.TrainSlices {
		n, err := copyAll(ctx, bySlice[id], trainDir)
		a.TrainFiles += n
		if err != nil {
			return nil, err
		}
	}
	for _, id := range a.TestSlices {
		n, err := copyAll(ctx, bySlice[id], testDir)
		a.TestFiles += n
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func copyAll(ctx context.Context, files []string, dir string) (int, error) {
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := copyFile(f, filepath.Join(dir, filepath.Base(f))); err != nil {
			return i, err
		}
	}
	return len(files), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode()&fs.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
