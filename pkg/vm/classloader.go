package vm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// ClassLoader finds and parses raw class bytes by internal class name.
// Linking them into an InstanceClass and registering them in a
// ClassLoaderData is the VM's job, not the loader's: this interface only
// ever hands back a parsed ClassNode, never something already linked.
type ClassLoader interface {
	LoadClass(name string) (*classnode.ClassNode, error)
}

// JmodClassLoader loads classes from a JDK jmod file, the bootstrap
// loader's usual backing store. A jmod is a zip with a four-byte "JM\x01\x00"
// magic prefix ahead of the archive itself and every class stored under
// a classes/ prefix, so reading one is almost reading a jar, just with
// that header to skip past first.
//
// Cache is read and written from resolveClassRaw, which Engine can call
// from more than one VMThread at once (spec.md's concurrency model makes
// no promise that two threads won't race to touch the same not-yet-loaded
// bootstrap class); mu guards it so that race is wasted work at worst
// (loading the same bytes twice before ClassLoaderData.Define picks a
// winner) rather than a corrupted map.
type JmodClassLoader struct {
	JmodPath string

	mu        sync.Mutex
	Cache     map[string]*classnode.ClassNode
	zipData   []byte
	zipReader *zip.Reader
}

func NewJmodClassLoader(jmodPath string) *JmodClassLoader {
	return &JmodClassLoader{
		JmodPath: jmodPath,
		Cache:    make(map[string]*classnode.ClassNode),
	}
}

// ensureZipReader opens and indexes the jmod's archive on first use.
// Called with mu held.
func (cl *JmodClassLoader) ensureZipReader() error {
	if cl.zipReader != nil {
		return nil
	}

	f, err := os.Open(cl.JmodPath)
	if err != nil {
		return fmt.Errorf("jmod: opening %s: %w", cl.JmodPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("jmod: stat %s: %w", cl.JmodPath, err)
	}

	data := make([]byte, stat.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return fmt.Errorf("jmod: reading %s: %w", cl.JmodPath, err)
	}

	cl.zipData = data[4:] // skip the "JM\x01\x00" jmod header
	cl.zipReader, err = zip.NewReader(bytes.NewReader(cl.zipData), int64(len(cl.zipData)))
	if err != nil {
		return fmt.Errorf("jmod: opening zip: %w", err)
	}
	return nil
}

func (cl *JmodClassLoader) LoadClass(name string) (*classnode.ClassNode, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cn, ok := cl.Cache[name]; ok {
		return cn, nil
	}

	if err := cl.ensureZipReader(); err != nil {
		return nil, err
	}

	target := "classes/" + name + ".class"
	for _, file := range cl.zipReader.File {
		if file.Name != target {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("jmod: opening %s: %w", target, err)
		}
		defer rc.Close()

		cn, err := classnode.Parse(rc)
		if err != nil {
			return nil, fmt.Errorf("jmod: parsing %s: %w", name, err)
		}
		cl.Cache[name] = cn
		return cn, nil
	}

	return nil, fmt.Errorf("jmod: class %s not found in %s", name, cl.JmodPath)
}

// UserClassLoader loads user classes from a classpath directory,
// delegating to Parent first per the standard parent-first delegation
// model: a class the bootstrap loader already supplies is never
// re-read off the user's classpath, even if a same-named .class file
// sits there too.
type UserClassLoader struct {
	ClassPath string
	Parent    ClassLoader

	mu    sync.Mutex
	Cache map[string]*classnode.ClassNode
}

func NewUserClassLoader(classPath string, parent ClassLoader) *UserClassLoader {
	return &UserClassLoader{
		ClassPath: classPath,
		Parent:    parent,
		Cache:     make(map[string]*classnode.ClassNode),
	}
}

func (cl *UserClassLoader) LoadClass(name string) (*classnode.ClassNode, error) {
	cl.mu.Lock()
	if cn, ok := cl.Cache[name]; ok {
		cl.mu.Unlock()
		return cn, nil
	}
	cl.mu.Unlock()

	if cl.Parent != nil {
		if cn, err := cl.Parent.LoadClass(name); err == nil {
			return cn, nil
		}
	}

	path := filepath.Join(cl.ClassPath, name+".class")
	cn, err := classnode.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("user: class %s not found: %w", name, err)
	}

	cl.mu.Lock()
	cl.Cache[name] = cn
	cl.mu.Unlock()
	return cn, nil
}
