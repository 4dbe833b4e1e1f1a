// Package artifacts locates and decodes compiler build artifacts, as written
// by Hardhat (artifacts/<source>.sol/<Name>.json) and Foundry
// (out/<source>.sol/<Name>.json), by contract name.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrNotFound is returned by Dir.Lookup() if no artifact exists for the
	// contract.
	ErrNotFound = errors.New("artifact not found")
	// ErrAmbiguous is returned by Dir.Lookup() if a bare contract name matches
	// artifacts from more than one source file.
	ErrAmbiguous = errors.New("ambiguous contract name")
	// ErrNoBytecode is returned by Artifact.Code() for abstract contracts and
	// interfaces.
	ErrNoBytecode = errors.New("artifact has no bytecode")
	// ErrUnlinkedLibraries is returned by Artifact.Code() if the bytecode
	// contains placeholders for external libraries.
	ErrUnlinkedLibraries = errors.New("bytecode has unlinked libraries")
)

// An Artifact is the decoded JSON output of compiling a single contract.
type Artifact struct {
	Format           string          `json:"_format,omitempty"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         Bytecode        `json:"bytecode"`
	DeployedBytecode Bytecode        `json:"deployedBytecode"`
	LinkReferences   LinkReferences  `json:"linkReferences,omitempty"`
}

// LinkReferences map source file -> library name -> byte offsets of the
// library's address placeholders.
type LinkReferences map[string]map[string][]LinkReference

// A LinkReference is the location of a 20-byte library-address placeholder.
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// names returns the fully-qualified names of all referenced libraries, sorted.
func (l LinkReferences) names() []string {
	var out []string
	for src, libs := range l {
		for lib := range libs {
			out = append(out, src+":"+lib)
		}
	}
	sort.Strings(out)
	return out
}

// Bytecode is hex-encoded EVM code. Hardhat writes it as a JSON string while
// Foundry writes an object with the hex in its "object" field, alongside its
// own link references.
type Bytecode struct {
	Object         string
	LinkReferences LinkReferences
}

// UnmarshalJSON accepts both the string and object encodings.
func (b *Bytecode) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err == nil {
		*b = Bytecode{Object: s}
		return nil
	}

	var obj struct {
		Object         string         `json:"object"`
		LinkReferences LinkReferences `json:"linkReferences"`
	}
	if err := json.Unmarshal(buf, &obj); err != nil {
		return fmt.Errorf("%T neither string nor object: %v", b, err)
	}
	*b = Bytecode{
		Object:         obj.Object,
		LinkReferences: obj.LinkReferences,
	}
	return nil
}

// MarshalJSON returns the Hardhat (string) encoding.
func (b Bytecode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Object)
}

// FullyQualifiedName returns "<source>:<contract>".
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// Code returns the decoded creation bytecode.
func (a *Artifact) Code() ([]byte, error) {
	links := a.LinkReferences
	if len(links) == 0 {
		links = a.Bytecode.LinkReferences
	}
	if len(links) > 0 {
		return nil, fmt.Errorf("%w: %s requires %s", ErrUnlinkedLibraries, a.ContractName, strings.Join(links.names(), ", "))
	}

	obj := a.Bytecode.Object
	if obj == "" || obj == "0x" {
		return nil, fmt.Errorf("%w: %s is abstract or an interface", ErrNoBytecode, a.ContractName)
	}
	if !strings.HasPrefix(obj, "0x") {
		obj = "0x" + obj
	}
	code, err := hexutil.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %v", a.ContractName, err)
	}
	return code, nil
}

// A Dir is a tree of artifacts rooted at an fs.FS.
type Dir struct {
	FS fs.FS
}

// Open returns a Dir rooted at the path, typically "artifacts" or "out".
func Open(dir string) *Dir {
	return &Dir{FS: os.DirFS(dir)}
}

// Lookup returns the artifact for the contract. The name can either be bare
// (e.g. "Token") or fully qualified (e.g. "contracts/Token.sol:Token"); the
// former is only valid if exactly one source file defines a contract with the
// name.
func (d *Dir) Lookup(name string) (*Artifact, error) {
	if src, contract, ok := strings.Cut(name, ":"); ok {
		return d.lookupQualified(src, contract)
	}

	paths, err := d.find(name)
	if err != nil {
		return nil, err
	}
	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		return d.read(paths[0], path.Dir(paths[0]))
	}

	fqns := make([]string, len(paths))
	for i, p := range paths {
		fqns[i] = qualifiedName(p)
	}
	return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, name, strings.Join(fqns, ", "))
}

// lookupQualified tries the Hardhat layout, which mirrors the full source
// path, before the Foundry one, which only keeps the file name.
func (d *Dir) lookupQualified(src, contract string) (*Artifact, error) {
	for _, p := range []string{
		path.Join(src, contract+".json"),
		path.Join(path.Base(src), contract+".json"),
	} {
		a, err := d.read(p, src)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return a, err
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, src+":"+contract)
}

// skipDirs are written alongside artifacts but never contain them.
var skipDirs = map[string]bool{
	"build-info": true,
	"cache":      true,
}

// find returns the paths of all artifacts named <contract>.json in a *.sol
// directory, sorted.
func (d *Dir) find(contract string) ([]string, error) {
	want := contract + ".json"
	var paths []string

	err := fs.WalkDir(d.FS, ".", func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if skipDirs[e.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(e.Name(), ".dbg.json") {
			return nil
		}
		if e.Name() == want && strings.HasSuffix(path.Dir(p), ".sol") {
			paths = append(paths, p)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q (no artifacts directory)", ErrNotFound, contract)
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// read decodes the artifact at p. Foundry output carries neither name, so the
// contract name is taken from the file and the source name is src.
func (d *Dir) read(p, src string) (*Artifact, error) {
	buf, err := fs.ReadFile(d.FS, p)
	if err != nil {
		return nil, err
	}
	a := new(Artifact)
	if err := json.Unmarshal(buf, a); err != nil {
		return nil, fmt.Errorf("decode artifact %q: %v", p, err)
	}
	if a.ContractName == "" {
		a.ContractName = strings.TrimSuffix(path.Base(p), ".json")
	}
	if a.SourceName == "" {
		a.SourceName = src
	}
	return a, nil
}

// qualifiedName converts an artifact path into "<source>:<contract>".
func qualifiedName(p string) string {
	return path.Dir(p) + ":" + strings.TrimSuffix(path.Base(p), ".json")
}
