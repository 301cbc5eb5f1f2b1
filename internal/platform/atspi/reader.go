//go:build linux

package atspi

import (
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/godbus/dbus/v5"
)

// maxDepth bounds traversal; GTK trees are far shallower.
const maxDepth = 64

// Reader implements platform.Reader over the AT-SPI bus.
type Reader struct {
	conn *dbus.Conn
}

// NewReader creates a reader on an open a11y bus connection.
func NewReader(conn *dbus.Conn) *Reader {
	return &Reader{conn: conn}
}

func (r *Reader) Applications() ([]string, error) {
	apps, err := r.children(objectRef{Name: registryBus, Path: rootPath})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	names := make([]string, 0, len(apps))
	for _, a := range apps {
		name, err := r.stringProp(a, "Name")
		if err != nil {
			continue // application exited mid-listing
		}
		names = append(names, name)
	}
	return names, nil
}

func (r *Reader) Tree(app string) (*model.Node, error) {
	apps, err := r.children(objectRef{Name: registryBus, Path: rootPath})
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for _, a := range apps {
		name, err := r.stringProp(a, "Name")
		if err != nil || name != app {
			continue
		}
		root, err := r.build(a, 0)
		if err != nil {
			return nil, fmt.Errorf("read tree of %q: %w", app, err)
		}
		return model.Link(root), nil
	}
	return nil, fmt.Errorf("%w: application %q is not registered on the a11y bus", model.ErrNotFound, app)
}

func (r *Reader) build(ref objectRef, depth int) (*model.Node, error) {
	obj := ref.object(r.conn)

	n := &model.Node{Ref: ref.String()}
	var err error
	if n.Name, err = r.stringProp(ref, "Name"); err != nil {
		return nil, err
	}
	n.Description, _ = r.stringProp(ref, "Description")
	if err := obj.Call(ifAccessible+".GetRoleName", 0).Store(&n.Role); err != nil {
		return nil, fmt.Errorf("GetRoleName %s: %w", ref, err)
	}
	var states []uint32
	if err := obj.Call(ifAccessible+".GetState", 0).Store(&states); err == nil {
		n.States = decodeStates(states)
	}

	var ifaces []string
	_ = obj.Call(ifAccessible+".GetInterfaces", 0).Store(&ifaces)
	for _, iface := range ifaces {
		switch iface {
		case ifComponent:
			n.Bounds = r.extents(obj)
		case ifText:
			n.Text = r.text(obj)
		}
	}

	if depth >= maxDepth {
		return n, nil
	}
	kids, err := r.children(ref)
	if err != nil {
		return n, nil // object went stale between calls; keep what we have
	}
	for _, k := range kids {
		child, err := r.build(k, depth+1)
		if err != nil {
			continue
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func (r *Reader) children(ref objectRef) ([]objectRef, error) {
	var kids []objectRef
	err := ref.object(r.conn).Call(ifAccessible+".GetChildren", 0).Store(&kids)
	return kids, err
}

func (r *Reader) stringProp(ref objectRef, prop string) (string, error) {
	v, err := ref.object(r.conn).GetProperty(ifAccessible + "." + prop)
	if err != nil {
		return "", err
	}
	s, _ := v.Value().(string)
	return s, nil
}

func (r *Reader) extents(obj dbus.BusObject) model.Bounds {
	var ext struct{ X, Y, W, H int32 }
	// Coordinate type 0 is screen-relative.
	if err := obj.Call(ifComponent+".GetExtents", 0, uint32(0)).Store(&ext); err != nil {
		return model.Bounds{}
	}
	return model.Bounds{X: int(ext.X), Y: int(ext.Y), Width: int(ext.W), Height: int(ext.H)}
}

func (r *Reader) text(obj dbus.BusObject) string {
	var s string
	if err := obj.Call(ifText+".GetText", 0, int32(0), int32(-1)).Store(&s); err != nil {
		return ""
	}
	return s
}
