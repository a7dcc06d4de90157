package dom

import "golang.org/x/net/html"

// ImageSplitter partitions an oversized block immediately before its first
// embedded image. It is the only split strategy the packer currently uses.
type ImageSplitter struct{}

// Split divides the block's direct children into the part before the child
// containing the first <img> and the part from that child onward. Both
// halves are fresh clones; the original block is untouched. An effectively
// empty half fails the split, since it would change nothing.
func (ImageSplitter) Split(b *Block) (before, after *Block, ok bool) {
	img := findFirst(b.node, "img")
	if img == nil {
		return nil, nil, false
	}

	// Walk up to the block's direct child that holds the image.
	pivot := img
	for pivot.Parent != nil && pivot.Parent != b.node {
		pivot = pivot.Parent
	}
	if pivot.Parent != b.node {
		// The block itself is the image; nothing to divide.
		return nil, nil, false
	}

	head := shallowClone(b.node)
	tail := shallowClone(b.node)
	target := head
	for c := b.node.FirstChild; c != nil; c = c.NextSibling {
		if c == pivot {
			target = tail
		}
		target.AppendChild(deepClone(c))
	}

	before = newBlock(head)
	after = newBlock(tail)
	if before.IsEffectivelyEmpty() || after.IsEffectivelyEmpty() {
		return nil, nil, false
	}
	return before, after, true
}

// findFirst returns the first descendant element with the given tag,
// in document order.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}
