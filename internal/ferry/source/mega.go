package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
)

const (
	defaultMegaAPIURL = "https://g.api.mega.co.nz"
	megaChunkSize     = 1 << 20

	megaListingLimit = 32 << 20 // large shared folders still fit comfortably
)

var (
	megaFileRE       = regexp.MustCompile(`mega\.nz/(?:#?!)?file/([a-zA-Z0-9_-]{8})#([a-zA-Z0-9_-]{16,})`)
	megaFileOldRE    = regexp.MustCompile(`mega\.nz/#?!([a-zA-Z0-9_-]{8})!([a-zA-Z0-9_-]{16,})`)
	megaFolderRE     = regexp.MustCompile(`mega\.nz/(?:#?!)?folder/([a-zA-Z0-9_-]{8})#([a-zA-Z0-9_-]{16,})`)
	megaFolderOldRE  = regexp.MustCompile(`mega\.nz/#?!F!([a-zA-Z0-9_-]{8})!([a-zA-Z0-9_-]{16,})`)
	megaFolderPathRE = regexp.MustCompile(`/folder/([a-zA-Z0-9_-]{8})`)
)

// MatchMegaFolder reports whether rawURL is a public MEGA folder link. Folder
// detection must run before file detection: the legacy file pattern also
// matches legacy folder links.
func MatchMegaFolder(rawURL string) bool {
	return megaFolderRE.MatchString(rawURL) || megaFolderOldRE.MatchString(rawURL)
}

// MatchMegaFile reports whether rawURL is a public MEGA file link.
func MatchMegaFile(rawURL string) bool {
	return megaFileRE.MatchString(rawURL) || megaFileOldRE.MatchString(rawURL)
}

// Mega downloads public MEGA files and folders, decrypting content on the fly.
type Mega struct {
	apiURL string
	client *http.Client
}

func NewMega(apiURL string, client *http.Client) *Mega {
	if apiURL == "" {
		apiURL = defaultMegaAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Mega{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: client,
	}
}

// Download fetches the file or folder behind entry.Raw into destDir. Folder
// links return one item per member file; members that cannot be fetched carry
// Err and the rest keep going.
func (m *Mega) Download(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error) {
	if MatchMegaFolder(entry.Raw) {
		return m.downloadFolder(ctx, entry, destDir, report)
	}
	return m.downloadFile(ctx, entry, destDir, report)
}

func parseMegaFileLink(rawURL string) (id string, keyWords []uint32, err error) {
	match := megaFileRE.FindStringSubmatch(rawURL)
	if match == nil {
		match = megaFileOldRE.FindStringSubmatch(rawURL)
	}
	if match == nil {
		return "", nil, pkgerror.NewInvalidLink(fmt.Errorf("not a mega file url: %s", rawURL))
	}

	keyBytes, err := megaB64Decode(match[2])
	if err != nil {
		return "", nil, pkgerror.NewInvalidLink(fmt.Errorf("mega key is not base64: %w", err))
	}

	return match[1], bytesToA32(keyBytes), nil
}

// parseMegaFolderLink returns the folder handle and the 128-bit share key.
// 256-bit link keys fold their halves.
func parseMegaFolderLink(rawURL string) (id string, shareKey []byte, err error) {
	match := megaFolderRE.FindStringSubmatch(rawURL)
	if match == nil {
		match = megaFolderOldRE.FindStringSubmatch(rawURL)
	}
	if match == nil {
		return "", nil, pkgerror.NewInvalidLink(fmt.Errorf("not a mega folder url: %s", rawURL))
	}

	keyBytes, err := megaB64Decode(match[2])
	if err != nil {
		return "", nil, pkgerror.NewInvalidLink(fmt.Errorf("mega key is not base64: %w", err))
	}

	words := bytesToA32(keyBytes)
	if len(words) >= 8 {
		words = xorA32(words[:4], words[4:8])
	}
	if len(words) < 4 {
		return "", nil, pkgerror.NewInvalidLink(fmt.Errorf("mega folder key has %d words", len(words)))
	}

	return match[1], a32ToBytes(words[:4]), nil
}

type megaFileInfo struct {
	G  string `json:"g"`
	S  int64  `json:"s"`
	At string `json:"at"`
}

type megaNode struct {
	H string `json:"h"`
	P string `json:"p"`
	T int    `json:"t"`
	A string `json:"a"`
	K string `json:"k"`
	S int64  `json:"s"`
}

type megaFolderListing struct {
	F []megaNode `json:"f"`
}

// apiCall posts one command to the MEGA API and unwraps the response
// envelope. folderID, when set, scopes the command to a public folder.
func (m *Mega) apiCall(ctx context.Context, payload any, folderID string) (json.RawMessage, error) {
	body, err := json.Marshal([]any{payload})
	if err != nil {
		return nil, pkgerror.NewServer(err)
	}

	endpoint := fmt.Sprintf("%s/cs?id=%d", m.apiURL, time.Now().UnixMilli())
	if folderID != "" {
		endpoint += "&n=" + url.QueryEscape(folderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPStatus("mega", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, megaListingLimit))
	if err != nil {
		return nil, pkgerror.NewNetwork(err)
	}

	return firstResult(raw)
}

// firstResult unwraps the API envelope: results usually arrive as a one
// element array, errors as bare negative numbers, and some variants skip the
// array entirely.
func firstResult(raw []byte) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return nil, pkgerror.NewNetwork(errors.New("mega: empty api response"))
		}
		return checkAPIError(arr[0])
	}

	return checkAPIError(raw)
}

func checkAPIError(raw json.RawMessage) (json.RawMessage, error) {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return nil, mapMegaCode(code)
	}
	return raw, nil
}

// mapMegaCode translates MEGA's numeric API errors.
func mapMegaCode(code int) error {
	switch code {
	case -2:
		return pkgerror.NewInvalidLink(fmt.Errorf("mega: rejected request arguments (%d)", code))
	case -3, -4:
		return pkgerror.NewRateLimited("mega: too many requests, retry later")
	case -9:
		return pkgerror.NewNotFound("mega: file or folder does not exist")
	case -14:
		return pkgerror.NewDecryption(fmt.Errorf("mega: server reported a key error (%d)", code))
	case -16:
		return pkgerror.NewNotFound("mega: resource has been taken down")
	case -17:
		return pkgerror.NewRateLimited("mega: transfer quota exceeded, wait or change IP")
	default:
		return pkgerror.NewNetwork(fmt.Errorf("mega: api error %d", code))
	}
}

func (m *Mega) downloadFile(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error) {
	fileID, keyWords, err := parseMegaFileLink(entry.Raw)
	if err != nil {
		return nil, err
	}

	key, nonce, err := deriveKeyNonce(keyWords)
	if err != nil {
		return nil, pkgerror.NewDecryption(err)
	}

	raw, err := m.apiCall(ctx, map[string]any{"a": "g", "g": 1, "p": fileID}, "")
	if err != nil {
		return nil, err
	}

	var info megaFileInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.G == "" {
		return nil, pkgerror.NewNetwork(errors.New("mega: response has no direct link"))
	}

	// Decrypting the attributes also proves the link key is right.
	attrName := ""
	if info.At != "" {
		attrName, err = decryptAttr(info.At, key)
		if err != nil {
			return nil, pkgerror.NewDecryption(fmt.Errorf("mega: %w", err))
		}
	}

	name := entry.Name
	if name == "" {
		name = attrName
	}
	if name == "" {
		name = "file"
	}
	name = cleanName(name)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, pkgerror.NewServer(err)
	}
	destPath := filepath.Join(destDir, name)

	if report != nil {
		report(entity.ProgressEvent{
			Source:   "mega",
			Stage:    entity.StageStarting,
			Filename: name,
			Total:    info.S,
		})
	}

	written, err := m.fetchDecrypted(ctx, info.G, destPath, key, nonce, info.S, name, report)
	if err != nil {
		return nil, err
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:     "mega",
			Stage:      entity.StageDone,
			Filename:   name,
			Downloaded: written,
			Total:      written,
		})
	}

	return []entity.FetchItem{{Name: name, Path: destPath, Size: written}}, nil
}

func (m *Mega) downloadFolder(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error) {
	folderID, shareKey, err := parseMegaFolderLink(entry.Raw)
	if err != nil {
		return nil, err
	}

	// A link with several /folder/<id> segments addresses the last one as a
	// subtree inside the share.
	target := ""
	if ids := megaFolderPathRE.FindAllStringSubmatch(entry.Raw, -1); len(ids) > 1 {
		target = ids[len(ids)-1][1]
	}

	raw, err := m.apiCall(ctx, map[string]any{"a": "f", "c": 1, "r": 1, "ca": 1}, folderID)
	if err != nil {
		return nil, err
	}

	var listing megaFolderListing
	if err := json.Unmarshal(raw, &listing); err != nil || listing.F == nil {
		return nil, pkgerror.NewNetwork(errors.New("mega: folder listing missing"))
	}

	tree := newFolderTree(listing.F, shareKey)

	allowed := tree.subtree(target)

	fileNodes := make([]megaNode, 0, len(listing.F))
	for _, node := range listing.F {
		if node.T != 0 {
			continue
		}
		if allowed != nil && !allowed[node.H] {
			continue
		}
		fileNodes = append(fileNodes, node)
	}

	if len(fileNodes) == 0 {
		return nil, pkgerror.NewNotFound("mega: folder has no files")
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, pkgerror.NewServer(err)
	}

	items := make([]entity.FetchItem, 0, len(fileNodes))
	fetched := 0
	for i, node := range fileNodes {
		memberReport := report
		if report != nil {
			idx := i + 1
			memberReport = func(event entity.ProgressEvent) {
				event.ItemIdx = idx
				event.ItemCount = len(fileNodes)
				report(event)
			}
		}

		item := m.fetchFolderFile(ctx, folderID, node, tree, target, destDir, memberReport)
		if item.Err == nil {
			fetched++
		}
		items = append(items, item)
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:  "mega",
			Stage:   entity.StageDone,
			Message: fmt.Sprintf("%d files", fetched),
		})
	}

	return items, nil
}

func (m *Mega) fetchFolderFile(ctx context.Context, folderID string, node megaNode, tree *folderTree, target, destDir string, report entity.ProgressFunc) entity.FetchItem {
	rel := filepath.Join(tree.relDir(node.H, target), tree.name(node.H))

	rawKey, ok := tree.keys[node.H]
	if !ok {
		return entity.FetchItem{
			Name: rel,
			Err:  pkgerror.NewDecryption(fmt.Errorf("mega: node %s key cannot be decrypted", node.H)),
		}
	}

	key, nonce, err := deriveKeyNonce(bytesToA32(rawKey))
	if err != nil {
		return entity.FetchItem{Name: rel, Err: pkgerror.NewDecryption(err)}
	}

	raw, err := m.apiCall(ctx, map[string]any{"a": "g", "g": 1, "n": node.H}, folderID)
	if err != nil {
		return entity.FetchItem{Name: rel, Err: err}
	}

	var info megaFileInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.G == "" {
		return entity.FetchItem{Name: rel, Err: pkgerror.NewNetwork(errors.New("mega: response has no direct link"))}
	}

	destPath := filepath.Join(destDir, rel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return entity.FetchItem{Name: rel, Err: pkgerror.NewServer(err)}
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:   "mega",
			Stage:    entity.StageStarting,
			Filename: rel,
			Total:    info.S,
		})
	}

	written, err := m.fetchDecrypted(ctx, info.G, destPath, key, nonce, info.S, rel, report)
	if err != nil {
		return entity.FetchItem{Name: rel, Err: err}
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:     "mega",
			Stage:      entity.StageDone,
			Filename:   rel,
			Downloaded: written,
			Total:      written,
		})
	}

	return entity.FetchItem{Name: rel, Path: destPath, Size: written}
}

// fetchDecrypted streams srcURL into destPath, decrypting with AES-CTR as the
// bytes arrive.
func (m *Mega) fetchDecrypted(ctx context.Context, srcURL, destPath string, key, nonce []byte, total int64, filename string, report entity.ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return 0, pkgerror.NewNetwork(err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, pkgerror.NewNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, mapHTTPStatus("mega", resp.StatusCode)
	}

	plain, err := newCTRReader(key, nonce, resp.Body)
	if err != nil {
		return 0, pkgerror.NewDecryption(err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, pkgerror.NewServer(err)
	}

	written, err := copyWithProgress(out, plain, megaChunkSize, total, "mega", filename, report)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, pkgerror.NewNetwork(err)
	}

	return written, nil
}

// folderTree indexes a folder listing: decrypted node keys, display names,
// and parent relationships.
type folderTree struct {
	nodes map[string]megaNode
	names map[string]string
	keys  map[string][]byte
}

func newFolderTree(nodes []megaNode, shareKey []byte) *folderTree {
	tree := &folderTree{
		nodes: make(map[string]megaNode, len(nodes)),
		names: make(map[string]string, len(nodes)),
		keys:  make(map[string][]byte, len(nodes)),
	}

	for _, node := range nodes {
		if node.H == "" {
			continue
		}
		tree.nodes[node.H] = node

		if node.K == "" {
			continue
		}
		rawKey, err := decryptNodeKey(node.K, shareKey)
		if err != nil {
			continue
		}
		tree.keys[node.H] = rawKey

		aesKey, _, err := deriveKeyNonce(bytesToA32(rawKey))
		if err != nil {
			continue
		}
		if node.A != "" {
			if name, err := decryptAttr(node.A, aesKey); err == nil && name != "" {
				tree.names[node.H] = cleanName(name)
			}
		}
	}

	return tree
}

// name returns the decrypted display name for a node, falling back to its
// handle.
func (t *folderTree) name(handle string) string {
	if n := t.names[handle]; n != "" {
		return n
	}
	return cleanName(handle)
}

// relDir walks ancestors to build the directory path for a node, re-rooted at
// target when a subtree is addressed.
func (t *folderTree) relDir(handle, target string) string {
	parts := []string{}

	cur, ok := t.nodes[handle]
	for ok {
		parent, found := t.nodes[cur.P]
		if !found {
			break
		}
		cur = parent

		if cur.T == 1 {
			if name := t.names[cur.H]; name != "" {
				parts = append(parts, name)
			}
			if target != "" && cur.H == target {
				break
			}
		}
	}
	slices.Reverse(parts)

	if target != "" {
		if targetName := t.names[target]; targetName != "" {
			for i, part := range parts {
				if part == targetName {
					parts = parts[i:]
					break
				}
			}
		}
	}

	return filepath.Join(parts...)
}

// subtree collects the handles reachable from target, or nil when the whole
// share is wanted.
func (t *folderTree) subtree(target string) map[string]bool {
	if target == "" {
		return nil
	}
	if _, ok := t.nodes[target]; !ok {
		return nil
	}

	children := make(map[string][]string, len(t.nodes))
	for handle, node := range t.nodes {
		if node.P != "" {
			children[node.P] = append(children[node.P], handle)
		}
	}

	allowed := make(map[string]bool)
	stack := []string{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if allowed[cur] {
			continue
		}
		allowed[cur] = true
		stack = append(stack, children[cur]...)
	}

	return allowed
}
