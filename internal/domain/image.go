package domain

// ImageKind tags which variant an Image holds.
type ImageKind int

const (
	ImageNone ImageKind = iota
	ImageURL
	ImageStoredFile
)

func (k ImageKind) String() string {
	switch k {
	case ImageURL:
		return "url"
	case ImageStoredFile:
		return "file"
	default:
		return "none"
	}
}

// Image is either nothing, an external URL, or a path to an uploaded file.
// The zero value is ImageNone.
type Image struct {
	Kind ImageKind
	Ref  string
}

// NoImage returns the empty variant.
func NoImage() Image { return Image{} }

// URLImage returns an external URL variant. An empty url yields NoImage.
func URLImage(url string) Image {
	if url == "" {
		return NoImage()
	}
	return Image{Kind: ImageURL, Ref: url}
}

// StoredImage returns an uploaded-file variant. An empty path yields NoImage.
func StoredImage(path string) Image {
	if path == "" {
		return NoImage()
	}
	return Image{Kind: ImageStoredFile, Ref: path}
}

// ImageFromColumns rebuilds the variant from the two nullable columns.
// A stored path wins when both are present.
func ImageFromColumns(url, path *string) Image {
	if path != nil && *path != "" {
		return StoredImage(*path)
	}
	if url != nil && *url != "" {
		return URLImage(*url)
	}
	return NoImage()
}

// Columns splits the variant into the (image_url, image_path) column pair.
func (i Image) Columns() (url, path *string) {
	switch i.Kind {
	case ImageURL:
		v := i.Ref
		return &v, nil
	case ImageStoredFile:
		v := i.Ref
		return nil, &v
	default:
		return nil, nil
	}
}

// IsZero reports whether the image is ImageNone.
func (i Image) IsZero() bool { return i.Kind == ImageNone }

// Src is the value for an <img src>; empty for ImageNone.
func (i Image) Src() string { return i.Ref }

// URL returns the external URL, if that is the variant.
func (i Image) URL() string {
	if i.Kind == ImageURL {
		return i.Ref
	}
	return ""
}
