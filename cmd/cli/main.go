package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	stateviz "github.com/stateviz/stateviz"
)

const helpText = `stateviz interactive REPL

Commands:
  load <name> <file>    Load a state graph snapshot from a JSON file
  unload <name>         Remove a loaded graph
  list                  List all loaded graphs
  use <name>            Set the active graph
  sheet <file>          Load and compile a stylesheet
  apply                 Apply the stylesheet to the active graph
  render                Apply and print the resulting visualization tree
  help                  Show this help message
  exit / quit           Exit the REPL

A stylesheet assigns visual properties to program state, for example:

  :: main .many(next) { display: "kvt"; title: typename(@) }
  .many(*) [] { display: "cell"; value: @ }
`

func main() {
	graphs := make(map[string]*stateviz.MemGraph)
	var active string
	var sheet *stateviz.CompiledStylesheet

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("stateviz — program state visualization engine")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	for {
		if active != "" {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "list":
			if len(graphs) == 0 {
				fmt.Println("(no graphs loaded)")
			} else {
				for name := range graphs {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Printf("  %s %s\n", marker, name)
				}
			}

		case "load":
			if len(parts) != 3 {
				fmt.Println("usage: load <name> <file>")
				continue
			}
			graph, err := stateviz.LoadGraphFile(parts[2])
			if err != nil {
				fmt.Printf("failed to load %s: %v\n", parts[2], err)
				continue
			}
			graphs[parts[1]] = graph
			active = parts[1]

		case "unload":
			if len(parts) != 2 {
				fmt.Println("usage: unload <name>")
				continue
			}
			delete(graphs, parts[1])
			if active == parts[1] {
				active = ""
			}

		case "use":
			if len(parts) != 2 {
				fmt.Println("usage: use <name>")
				continue
			}
			if _, ok := graphs[parts[1]]; !ok {
				fmt.Printf("no graph named %q\n", parts[1])
				continue
			}
			active = parts[1]

		case "sheet":
			if len(parts) != 2 {
				fmt.Println("usage: sheet <file>")
				continue
			}
			source, err := os.ReadFile(parts[1])
			if err != nil {
				fmt.Printf("failed to read %s: %v\n", parts[1], err)
				continue
			}
			compiled, err := stateviz.CompileStylesheet(string(source), func(e stateviz.ParseError) {
				fmt.Printf("stylesheet: %v\n", e)
			})
			if err != nil {
				fmt.Printf("stylesheet failed to parse: %v\n", err)
				continue
			}
			sheet = compiled
			fmt.Println("stylesheet compiled")

		case "apply":
			if sheet == nil {
				fmt.Println("no stylesheet loaded; use: sheet <file>")
				continue
			}
			graph, ok := graphs[active]
			if !ok {
				fmt.Println("no active graph; use: load <name> <file>")
				continue
			}
			mapping := stateviz.Apply(sheet, graph)
			descriptions := stateviz.DescribeMapping(mapping)
			if len(descriptions) == 0 {
				fmt.Println("(nothing selected)")
				continue
			}
			for _, d := range descriptions {
				fmt.Printf("%s {", d.Entity)
				if d.Display != "" {
					fmt.Printf(" display: %s;", d.Display)
				}
				if d.Parent != "" {
					fmt.Printf(" parent: %s;", d.Parent)
				}
				if d.Target != "" {
					fmt.Printf(" target: %s;", d.Target)
				}
				for key, value := range d.Attributes {
					fmt.Printf(" %s: %q;", key, value)
				}
				fmt.Println(" }")
			}

		case "render":
			if sheet == nil {
				fmt.Println("no stylesheet loaded; use: sheet <file>")
				continue
			}
			graph, ok := graphs[active]
			if !ok {
				fmt.Println("no active graph; use: load <name> <file>")
				continue
			}
			tree := stateviz.NewMemTree()
			engine := stateviz.NewEngine(sheet, tree)
			engine.Refresh(graph)
			printTree(tree)

		default:
			fmt.Printf("unknown command %q; type \"help\"\n", cmd)
		}
	}
}

// printTree dumps the element hierarchy and connectors of a tree.
func printTree(tree *stateviz.MemTree) {
	elements := tree.Elements()
	children := make(map[int][]int)
	var roots []int
	for i, element := range elements {
		if element.Parent == nil {
			roots = append(roots, i)
		} else {
			parent := int(*element.Parent)
			children[parent] = append(children[parent], i)
		}
	}
	var dump func(index, depth int)
	dump = func(index, depth int) {
		element := elements[index]
		fmt.Printf("%s<%s>", strings.Repeat("  ", depth), element.Tag)
		for key, value := range element.Attributes {
			fmt.Printf(" %s=%q", key, value)
		}
		fmt.Println()
		for _, child := range children[index] {
			dump(child, depth+1)
		}
	}
	for _, root := range roots {
		dump(root, 0)
	}
	for _, connector := range tree.Connectors() {
		start, end := "-", "-"
		if connector.StartPin.Target != nil {
			start = elements[*connector.StartPin.Target].Tag
		}
		if connector.EndPin.Target != nil {
			end = elements[*connector.EndPin.Target].Tag
		}
		fmt.Printf("connector %s -> %s\n", start, end)
	}
}
