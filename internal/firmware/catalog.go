package firmware

import (
	"errors"

	"github.com/sensormesh/nodecore/internal/frame"
	"github.com/sensormesh/nodecore/internal/router"
)

var ErrUnknownImage = errors.New("firmware: no image registered for type/version")

// Image is a complete firmware image as held by the gateway, sliced into
// FirmwareBlockSize blocks on demand to answer FirmwareRequest frames.
type Image struct {
	Descriptor Descriptor
	Data       []byte
}

func blockCount(dataLen int) uint16 {
	n := dataLen / blockSize
	if dataLen%blockSize != 0 {
		n++
	}
	return uint16(n)
}

// NewImage computes blocks/crc over data, block-aligned and zero-padded
// exactly as it will be staged on the receiving end (MemoryStaging writes
// one full blockSize-byte block at a time), so the advertised Crc matches
// what Updater.finish verifies against.
func NewImage(imgType, version byte, data []byte) Image {
	n := blockCount(len(data))
	img := Image{Descriptor: Descriptor{Type: imgType, Version: version, Blocks: n}, Data: data}

	var crc uint16
	for i := uint16(0); i < n; i++ {
		b := img.block(i)
		for _, by := range b {
			crc = crc16Update(crc, by)
		}
	}
	img.Descriptor.Crc = crc
	return img
}

func (img Image) block(index uint16) [blockSize]byte {
	var out [blockSize]byte
	start := int(index) * blockSize
	if start >= len(img.Data) {
		return out
	}
	end := start + blockSize
	if end > len(img.Data) {
		end = len(img.Data)
	}
	copy(out[:], img.Data[start:end])
	return out
}

// Catalog is the gateway-role half of spec.md §4.6: it holds the set of
// available images (keyed by type) and answers FirmwareConfigRequest /
// FirmwareRequest frames with the latest registered image for that type.
type Catalog struct {
	images map[byte]Image
}

func NewCatalog() *Catalog {
	return &Catalog{images: make(map[byte]Image)}
}

// Register makes img the image served for its Descriptor.Type — the
// gateway's provisioning operator publishing a new firmware version.
func (c *Catalog) Register(img Image) {
	c.images[img.Descriptor.Type] = img
}

func (c *Catalog) lookup(imgType byte) (Image, bool) {
	img, ok := c.images[imgType]
	return img, ok
}

// Gateway is the gateway-role half of spec.md §4.6: it answers
// FirmwareConfigRequest and FirmwareRequest frames arriving from any node
// in the mesh using the Catalog's registered images, and is wired into
// the gateway's dispatcher as a FirmwareHandler.
type Gateway struct {
	catalog *Catalog
	router  *router.Router
}

func NewGateway(catalog *Catalog, rtr *router.Router) *Gateway {
	return &Gateway{catalog: catalog, router: rtr}
}

// HandleFrame implements dispatcher.FirmwareHandler on the gateway side.
func (g *Gateway) HandleFrame(f *frame.Frame) {
	switch p := f.Payload.(type) {
	case *frame.FirmwareConfigRequestPayload:
		g.onConfigRequest(f.Header.Sender, p)
	case *frame.FirmwareRequestPayload:
		g.onBlockRequest(f.Header.Sender, p)
	}
}

func (g *Gateway) onConfigRequest(from byte, p *frame.FirmwareConfigRequestPayload) {
	img, ok := g.catalog.lookup(p.InstalledType)
	desc := Descriptor{Type: p.InstalledType, Version: p.InstalledVersion, Blocks: p.InstalledBlocks, Crc: p.InstalledCrc}
	if ok {
		desc = img.Descriptor
	}
	resp := &frame.Frame{
		Header: frame.Header{
			Sender:      g.router.Cfg.NodeID,
			Destination: from,
			MessageType: frame.MsgFirmwareConfigResponse,
		},
		Payload: &frame.FirmwareConfigResponsePayload{
			Type: desc.Type, Version: desc.Version, Blocks: desc.Blocks, Crc: desc.Crc,
		},
	}
	g.router.SendRoute(resp)
}

func (g *Gateway) onBlockRequest(from byte, p *frame.FirmwareRequestPayload) {
	block, err := g.catalog.HandleBlockRequest(p.Type, p.Version, p.Block)
	if err != nil {
		return
	}
	resp := &frame.Frame{
		Header: frame.Header{
			Sender:      g.router.Cfg.NodeID,
			Destination: from,
			MessageType: frame.MsgFirmwareResponse,
		},
		Payload: &frame.FirmwareResponsePayload{
			Type: p.Type, Version: p.Version, Block: p.Block, Data: block,
		},
	}
	g.router.SendRoute(resp)
}

// HandleBlockRequest returns the requested block of the image matching
// type/version, or ErrUnknownImage if no such image is registered.
func (c *Catalog) HandleBlockRequest(imgType, version byte, block uint16) ([blockSize]byte, error) {
	img, ok := c.lookup(imgType)
	if !ok || img.Descriptor.Version != version {
		return [blockSize]byte{}, ErrUnknownImage
	}
	return img.block(block), nil
}
