package qmd

// Argument builders for the tool's command-line contract. Each returns a
// discrete argv slice; query and collection are separate elements by
// construction.

// SearchArgs builds `<command> <query> -c <collection>`.
func SearchArgs(command, query, collection string) []string {
	return []string{command, query, "-c", collection}
}

// CollectionListArgs builds `collection list`.
func CollectionListArgs() []string {
	return []string{"collection", "list"}
}

// CollectionAddArgs builds `collection add <path> --name <collection>`.
func CollectionAddArgs(path, collection string) []string {
	return []string{"collection", "add", path, "--name", collection}
}

// EmbedArgs builds `embed -c <collection>`.
func EmbedArgs(collection string) []string {
	return []string{"embed", "-c", collection}
}
