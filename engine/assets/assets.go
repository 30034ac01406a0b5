package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var ErrWatcherClosed = errors.New("asset watcher already closed")

// changeBacklog bounds the pending notifications; the consumer coalesces them anyway.
const changeBacklog = 64

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// Change reports that a file the player reads was created, written or removed.
type Change struct {
	Path string
	Type metadata.ResourceType
	Op   fsnotify.Op
}

// AssetManager indexes the files of a project, loads them through the registered
// loaders and, when watching, publishes changes on Changes().
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	watching bool
	changes  chan Change
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan Change, changeBacklog),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeDescription, &loaders.DescriptionLoader{})
	am.registerLoader(metadata.ResourceTypeScript, &loaders.ScriptLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeVolume, &loaders.VolumeLoader{})

	return am, nil
}

// Initialize indexes projectDir. With watch set the tree is also watched and changes
// are published until Close.
func (am *AssetManager) Initialize(projectDir string, watch bool) error {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}
	am.root = root

	if err := am.watchRecursive(root, !watch); err != nil {
		return err
	}
	if watch {
		am.watching = true
		go am.start()
		core.LogDebug("watching '%s' for changes", root)
	}
	return nil
}

// Changes delivers file changes while the manager is watching. The channel is closed
// by Close.
func (am *AssetManager) Changes() <-chan Change {
	return am.changes
}

// Close stops watching. It is safe to call more than once.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	if am.watching {
		close(am.done)
		<-am.stopped
		return nil
	}
	close(am.changes)
	return am.fsnotify.Close()
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader of resourceType.
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// Lookup returns what the index knows about path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

// Assets lists the indexed files of a type.
func (am *AssetManager) Assets(assetType metadata.ResourceType) []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var paths []string
	for p, info := range am.assets {
		if info.Type == assetType {
			paths = append(paths, p)
		}
	}
	return paths
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("cannot watch '%s': %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// A removed path may have been a directory; fsnotify drops its watch either way.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}
			am.publish(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", e)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) publish(e fsnotify.Event) {
	assetType := determineAssetType(e.Name)
	if !isWatchedType(assetType) {
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	select {
	case am.changes <- Change{Path: e.Name, Type: assetType, Op: e.Op}:
	default:
		core.LogDebug("change backlog full, dropping '%s'", e.Name)
	}
}

// watchRecursive indexes every file under path and, unless indexOnly, adds every
// directory to the watch list. A file created before its directory is watched is
// still picked up by the walk.
func (am *AssetManager) watchRecursive(path string, indexOnly bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if strings.HasPrefix(fi.Name(), ".") && walkPath != path {
				return filepath.SkipDir
			}
			if indexOnly {
				return nil
			}
			am.mutex.RLock()
			closed := am.isClosed
			am.mutex.RUnlock()
			if closed {
				return ErrWatcherClosed
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	key := filepath.Clean(path)
	info := am.assets[key]
	info.Path = path
	info.Type = assetType
	am.assets[key] = info
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

// isWatchedType is true for inputs whose change requires a reload. Compiled
// artifacts are written by the player itself and are not reported.
func isWatchedType(t metadata.ResourceType) bool {
	switch t {
	case metadata.ResourceTypeDescription, metadata.ResourceTypeScript, metadata.ResourceTypeShaderSource,
		metadata.ResourceTypeImage, metadata.ResourceTypeVolume, metadata.ResourceTypeSettings:
		return true
	default:
		return false
	}
}

func determineAssetType(path string) metadata.ResourceType {
	base := filepath.Base(path)
	switch {
	case base == "description.json":
		return metadata.ResourceTypeDescription
	case base == "settings.toml":
		return metadata.ResourceTypeSettings
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return metadata.ResourceTypeScript
	case ".glsl", ".frag":
		return metadata.ResourceTypeShaderSource
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".bin":
		return metadata.ResourceTypeVolume
	default:
		return metadata.ResourceTypeNone
	}
}
