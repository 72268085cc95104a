package fingerprint

// CreditsTemplates returns the reference fingerprints for stereotypical end
// credits: a bright column of text centred on a dark field. The large variant
// covers the full frame; the small variant models a cropped, narrower text
// column whose first and last rows are masked. Columns bordering the text
// band are Unknown so soft text edges do not count against a match.
func CreditsTemplates(size Size) (small, large Fingerprint) {
	if !size.Valid() {
		return Fingerprint{}, Fingerprint{}
	}
	w := size.Width
	large = band(size, w/4, (3*w)/4, false)
	small = band(size, (3*w)/8, max((5*w)/8, (3*w)/8+1), true)
	return small, large
}

func band(size Size, from, to int, maskEdgeRows bool) Fingerprint {
	fp := make(Fingerprint, size.Pixels())
	for row := 0; row < size.Height; row++ {
		for col := 0; col < size.Width; col++ {
			idx := row*size.Width + col
			switch {
			case maskEdgeRows && (row == 0 || row == size.Height-1):
				fp[idx] = Unknown
			case col >= from && col < to:
				fp[idx] = On
			case col == from-1 || col == to:
				fp[idx] = Unknown
			default:
				fp[idx] = Off
			}
		}
	}
	return fp
}
