package dom

// Namespace is a namespace URL. The empty string is the null namespace.
type Namespace string

const (
	NamespaceNone  Namespace = ""
	NamespaceHTML  Namespace = "http://www.w3.org/1999/xhtml"
	NamespaceSVG   Namespace = "http://www.w3.org/2000/svg"
	NamespaceMath  Namespace = "http://www.w3.org/1998/Math/MathML"
	NamespaceXLink Namespace = "http://www.w3.org/1999/xlink"
	NamespaceXML   Namespace = "http://www.w3.org/XML/1998/namespace"
)

// IsEmpty reports whether ns is the null namespace.
func (ns Namespace) IsEmpty() bool {
	return ns == NamespaceNone
}
