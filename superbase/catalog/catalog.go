// Package catalog finds Superbase tables on a file system. A table is a .SBD
// schema file and a .SBF data file sharing a base name; names and extensions
// are matched without regard to case.
package catalog

import (
	"io/fs"
	"path"
	"strings"

	"superbase-golang/superbase/util"
)

const (
	SchemaExt = ".sbd"
	DataExt   = ".sbf"

	filePattern = "*.[Ss][Bb][DdFf]"
)

type Pair struct {
	// Name is the lower-cased base name, used as the table name.
	Name       string
	SchemaPath string
	DataPath   string
}

func (p *Pair) Complete() bool {
	return p.SchemaPath != "" && p.DataPath != ""
}

// Validate returns a pairing error naming the missing half of an incomplete pair.
func (p *Pair) Validate() error {
	switch {
	case p.Complete():
		return nil
	case p.SchemaPath == "":
		return util.NewSuperbaseError(util.ErrMissingPair, "table %s: no %s file for %s", p.Name, SchemaExt, p.DataPath)
	default:
		return util.NewSuperbaseError(util.ErrMissingPair, "table %s: no %s file for %s", p.Name, DataExt, p.SchemaPath)
	}
}

type pairComparator struct{}

func (pairComparator) Compare(a, b *Pair) int {
	return strings.Compare(a.Name, b.Name)
}

func (pairComparator) Name() string {
	return "superbase.pairComparator"
}

// Catalog holds the pairs found in one directory, ordered by name.
type Catalog struct {
	fsys  fs.FS
	pairs *SkipList[Pair]
}

func New(fsys fs.FS) *Catalog {
	return &Catalog{
		fsys:  fsys,
		pairs: NewSkipList[Pair](pairComparator{}),
	}
}

// Find globs dir for schema and data files.
func Find(fsys fs.FS, dir string) (*Catalog, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, filePattern))
	if err != nil {
		return nil, err
	}

	c := New(fsys)
	for _, match := range matches {
		c.Add(match)
	}
	return c, nil
}

// Add files p under its pair. It returns false when p is not a schema or data
// file, or when its slot in the pair is already taken; the first file wins.
func (c *Catalog) Add(p string) bool {
	base := path.Base(p)
	ext := strings.ToLower(path.Ext(base))
	if ext != SchemaExt && ext != DataExt {
		return false
	}
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))

	pair := c.pairs.Get(&Pair{Name: name})
	if pair == nil {
		pair = &Pair{Name: name}
		c.pairs.Insert(pair)
	}

	slot := &pair.DataPath
	if ext == SchemaExt {
		slot = &pair.SchemaPath
	}
	if *slot != "" {
		return false
	}
	*slot = p
	return true
}

func (c *Catalog) FS() fs.FS {
	return c.fsys
}

func (c *Catalog) Lookup(name string) (*Pair, bool) {
	pair := c.pairs.Get(&Pair{Name: strings.ToLower(name)})
	return pair, pair != nil
}

func (c *Catalog) Len() int {
	return c.pairs.Len()
}

// Pairs returns every pair in name order, complete or not.
func (c *Catalog) Pairs() []*Pair {
	pairs := make([]*Pair, 0, c.pairs.Len())
	iter := NewSkipListIterator(c.pairs)
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		pairs = append(pairs, iter.GetKey())
	}
	return pairs
}

// Complete returns the convertible pairs in name order.
func (c *Catalog) Complete() []*Pair {
	pairs := make([]*Pair, 0, c.pairs.Len())
	for _, pair := range c.Pairs() {
		if pair.Complete() {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
