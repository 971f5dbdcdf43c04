package imports

// typingNames are the importable names of the typing module. A bare type
// name outside this set is assumed to be a builtin and needs no import.
var typingNames = map[string]bool{
	"AbstractSet":      true,
	"Any":              true,
	"AnyStr":           true,
	"AsyncContextManager": true,
	"AsyncGenerator":   true,
	"AsyncIterable":    true,
	"AsyncIterator":    true,
	"Awaitable":        true,
	"ByteString":       true,
	"Callable":         true,
	"ChainMap":         true,
	"ClassVar":         true,
	"Collection":       true,
	"Container":        true,
	"ContextManager":   true,
	"Coroutine":        true,
	"Counter":          true,
	"DefaultDict":      true,
	"Deque":            true,
	"Dict":             true,
	"Final":            true,
	"FrozenSet":        true,
	"Generator":        true,
	"Generic":          true,
	"Hashable":         true,
	"ItemsView":        true,
	"Iterable":         true,
	"Iterator":         true,
	"KeysView":         true,
	"List":             true,
	"Literal":          true,
	"Mapping":          true,
	"MappingView":      true,
	"Match":            true,
	"MutableMapping":   true,
	"MutableSequence":  true,
	"MutableSet":       true,
	"NamedTuple":       true,
	"NewType":          true,
	"NoReturn":         true,
	"Optional":         true,
	"OrderedDict":      true,
	"Pattern":          true,
	"Protocol":         true,
	"Reversible":       true,
	"Sequence":         true,
	"Set":              true,
	"Sized":            true,
	"SupportsBytes":    true,
	"SupportsComplex":  true,
	"SupportsFloat":    true,
	"SupportsInt":      true,
	"SupportsRound":    true,
	"Text":             true,
	"Tuple":            true,
	"Type":             true,
	"TypeVar":          true,
	"TYPE_CHECKING":    true,
	"Union":            true,
	"ValuesView":       true,
}
