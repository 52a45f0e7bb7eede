package gdbmi

import "strconv"

// Extraction helpers that interpret raw payload values as the typed
// structures of this package.

// Take finds an entry by key or fails with a MissingKey error.
func (t Tuple) Take(key string) (Value, error) {
	if v, ok := t.Lookup(key); ok {
		return v, nil
	}
	return Value{}, MissingKey(key)
}

// AsString extracts a string constant.
func (v Value) AsString() (string, error) {
	if v.Kind != ConstValue {
		return "", BadValueType()
	}
	return v.Str, nil
}

// AsTuple extracts a tuple or a named-item list.
func (v Value) AsTuple() (Tuple, error) {
	if v.Kind != TupleValue && v.Kind != TupleListValue {
		return nil, BadValueType()
	}
	return v.Tuple, nil
}

// AsList extracts a plain list.
func (v Value) AsList() ([]Value, error) {
	if v.Kind != ListValue {
		return nil, BadValueType()
	}
	return v.List, nil
}

// Decimal extracts a string constant holding a decimal integer.
func (v Value) Decimal() (int, error) {
	s, err := v.AsString()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, BadValue(s)
	}
	return n, nil
}

// Unsigned extracts a string constant holding an unsigned decimal.
func (v Value) Unsigned() (uint64, error) {
	s, err := v.AsString()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, BadValue(s)
	}
	return n, nil
}

// Hex extracts a string constant holding a 0x-prefixed integer.
func (v Value) Hex() (uint64, error) {
	s, err := v.AsString()
	if err != nil {
		return 0, err
	}
	if len(s) < 2 || s[:2] != "0x" {
		return 0, BadValue(s)
	}
	n, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, BadValue(s)
	}
	return n, nil
}

// ZeroOrOne extracts a "0"/"1" boolean flag.
func (v Value) ZeroOrOne() (bool, error) {
	s, err := v.AsString()
	if err != nil {
		return false, err
	}
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, BadValue(s)
	}
}

func (v Value) stackTrace() ([]StackFrame, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return nil, err
	}
	var frames []StackFrame
	for _, e := range tuple {
		if e.Key != "frame" {
			continue
		}
		frame, err := e.Value.stackFrame()
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (v Value) stackFrame() (StackFrame, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return StackFrame{}, err
	}
	var frame StackFrame
	level, err := tuple.Take("level")
	if err != nil {
		return StackFrame{}, err
	}
	if frame.Level, err = level.Decimal(); err != nil {
		return StackFrame{}, err
	}
	addr, err := tuple.Take("addr")
	if err != nil {
		return StackFrame{}, err
	}
	if frame.Addr, err = addr.Hex(); err != nil {
		return StackFrame{}, err
	}
	fn, err := tuple.Take("func")
	if err != nil {
		return StackFrame{}, err
	}
	if frame.Func, err = fn.AsString(); err != nil {
		return StackFrame{}, err
	}
	if file, ok := tuple.Lookup("file"); ok {
		if frame.File, err = file.AsString(); err != nil {
			return StackFrame{}, err
		}
	}
	if fullname, ok := tuple.Lookup("fullname"); ok {
		if frame.Fullname, err = fullname.AsString(); err != nil {
			return StackFrame{}, err
		}
	}
	if line, ok := tuple.Lookup("line"); ok {
		n, err := line.Unsigned()
		if err != nil {
			return StackFrame{}, err
		}
		frame.Line = n
	}
	if from, ok := tuple.Lookup("from"); ok {
		if frame.From, err = from.AsString(); err != nil {
			return StackFrame{}, err
		}
	}
	if arch, ok := tuple.Lookup("arch"); ok {
		if frame.Arch, err = arch.AsString(); err != nil {
			return StackFrame{}, err
		}
	}
	return frame, nil
}

func (v Value) localVariableList() ([]LocalVariable, error) {
	list, err := v.AsList()
	if err != nil {
		// An empty variable list may come back as [].
		if v.Kind == TupleListValue && len(v.Tuple) == 0 {
			return nil, nil
		}
		return nil, err
	}
	locals := make([]LocalVariable, 0, len(list))
	for _, item := range list {
		local, err := item.localVariable()
		if err != nil {
			return nil, err
		}
		locals = append(locals, local)
	}
	return locals, nil
}

func (v Value) localVariable() (LocalVariable, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return LocalVariable{}, err
	}
	var local LocalVariable
	name, err := tuple.Take("name")
	if err != nil {
		return LocalVariable{}, err
	}
	if local.Name, err = name.AsString(); err != nil {
		return LocalVariable{}, err
	}
	if arg, ok := tuple.Lookup("arg"); ok {
		if local.Arg, err = arg.ZeroOrOne(); err != nil {
			return LocalVariable{}, err
		}
	}
	if value, ok := tuple.Lookup("value"); ok {
		s, err := value.AsString()
		if err != nil {
			return LocalVariable{}, err
		}
		local.Value = &s
	}
	return local, nil
}

// varObject interprets a tuple as a variable object description.
// Creation responses and children both carry the handle under "name".
func (t Tuple) varObject() (VariableObjectData, error) {
	var data VariableObjectData
	name, err := t.Take("name")
	if err != nil {
		return VariableObjectData{}, err
	}
	handle, err := name.AsString()
	if err != nil {
		return VariableObjectData{}, err
	}
	data.Object = VarObject(handle)
	if value, ok := t.Lookup("value"); ok {
		s, err := value.AsString()
		if err != nil {
			return VariableObjectData{}, err
		}
		data.Value = &s
	}
	if typeName, ok := t.Lookup("type"); ok {
		if data.TypeName, err = typeName.AsString(); err != nil {
			return VariableObjectData{}, err
		}
	}
	if numChild, ok := t.Lookup("numchild"); ok {
		if data.NumChild, err = numChild.Decimal(); err != nil {
			return VariableObjectData{}, err
		}
	}
	if dynamic, ok := t.Lookup("dynamic"); ok {
		if data.Dynamic, err = dynamic.ZeroOrOne(); err != nil {
			return VariableObjectData{}, err
		}
	}
	if hasMore, ok := t.Lookup("has_more"); ok {
		if data.HasMore, err = hasMore.ZeroOrOne(); err != nil {
			return VariableObjectData{}, err
		}
	}
	if threadID, ok := t.Lookup("thread-id"); ok {
		if data.ThreadID, err = threadID.AsString(); err != nil {
			return VariableObjectData{}, err
		}
	}
	return data, nil
}

func (t Tuple) childList() (ChildList, error) {
	var list ChildList
	numChild, err := t.Take("numchild")
	if err != nil {
		return ChildList{}, err
	}
	if list.NumChild, err = numChild.Decimal(); err != nil {
		return ChildList{}, err
	}
	if hasMore, ok := t.Lookup("has_more"); ok {
		if list.HasMore, err = hasMore.ZeroOrOne(); err != nil {
			return ChildList{}, err
		}
	}
	if children, ok := t.Lookup("children"); ok {
		if list.Children, err = children.childListInner(); err != nil {
			return ChildList{}, err
		}
	}
	return list, nil
}

func (v Value) childListInner() ([]ChildVariableObject, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return nil, err
	}
	var children []ChildVariableObject
	for _, e := range tuple {
		if e.Key != "child" {
			continue
		}
		child, err := e.Value.childVarObject()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (v Value) childVarObject() (ChildVariableObject, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return ChildVariableObject{}, err
	}
	data, err := tuple.varObject()
	if err != nil {
		return ChildVariableObject{}, err
	}
	exp, err := tuple.Take("exp")
	if err != nil {
		return ChildVariableObject{}, err
	}
	expStr, err := exp.AsString()
	if err != nil {
		return ChildVariableObject{}, err
	}
	return ChildVariableObject{VariableObjectData: data, Exp: expStr}, nil
}

func (v Value) changelist() ([]VariableObjectUpdate, error) {
	list, err := v.AsList()
	if err != nil {
		if v.Kind == TupleListValue {
			var updates []VariableObjectUpdate
			for _, e := range v.Tuple {
				update, err := e.Value.varObjectUpdate()
				if err != nil {
					return nil, err
				}
				updates = append(updates, update)
			}
			return updates, nil
		}
		return nil, err
	}
	updates := make([]VariableObjectUpdate, 0, len(list))
	for _, item := range list {
		update, err := item.varObjectUpdate()
		if err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}
	return updates, nil
}

func (v Value) varObjectUpdate() (VariableObjectUpdate, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return VariableObjectUpdate{}, err
	}
	var update VariableObjectUpdate
	name, err := tuple.Take("name")
	if err != nil {
		return VariableObjectUpdate{}, err
	}
	handle, err := name.AsString()
	if err != nil {
		return VariableObjectUpdate{}, err
	}
	update.Object = VarObject(handle)
	if value, ok := tuple.Lookup("value"); ok {
		s, err := value.AsString()
		if err != nil {
			return VariableObjectUpdate{}, err
		}
		update.Value = &s
	}
	inScope, err := tuple.Take("in_scope")
	if err != nil {
		return VariableObjectUpdate{}, err
	}
	if update.InScope, err = inScope.inScopeFlag(); err != nil {
		return VariableObjectUpdate{}, err
	}
	if newType, ok := tuple.Lookup("new_type"); ok {
		s, err := newType.AsString()
		if err != nil {
			return VariableObjectUpdate{}, err
		}
		update.NewTypeName = &s
	}
	if newNum, ok := tuple.Lookup("new_num_children"); ok {
		n, err := newNum.Decimal()
		if err != nil {
			return VariableObjectUpdate{}, err
		}
		update.NewNumChildren = &n
	}
	if hasMore, ok := tuple.Lookup("has_more"); ok {
		if update.HasMore, err = hasMore.ZeroOrOne(); err != nil {
			return VariableObjectUpdate{}, err
		}
	}
	if dynamic, ok := tuple.Lookup("dynamic"); ok {
		if update.Dynamic, err = dynamic.ZeroOrOne(); err != nil {
			return VariableObjectUpdate{}, err
		}
	}
	if newChildren, ok := tuple.Lookup("new_children"); ok {
		if update.NewChildren, err = newChildren.childListInner(); err != nil {
			return VariableObjectUpdate{}, err
		}
	}
	return update, nil
}

func (v Value) inScopeFlag() (InScope, error) {
	s, err := v.AsString()
	if err != nil {
		return InScopeOther, err
	}
	switch s {
	case "true":
		return InScopeTrue, nil
	case "false":
		return InScopeFalse, nil
	case "invalid":
		return InScopeInvalid, nil
	default:
		return InScopeOther, nil
	}
}

func (v Value) symbolQueryResult() ([]SymbolFile, error) {
	list, err := v.AsList()
	if err != nil {
		return nil, err
	}
	files := make([]SymbolFile, 0, len(list))
	for _, item := range list {
		file, err := item.symbolFile()
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func (v Value) symbolFile() (SymbolFile, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return SymbolFile{}, err
	}
	var file SymbolFile
	if filename, ok := tuple.Lookup("filename"); ok {
		if file.Filename, err = filename.AsString(); err != nil {
			return SymbolFile{}, err
		}
	}
	if fullname, ok := tuple.Lookup("fullname"); ok {
		if file.Fullname, err = fullname.AsString(); err != nil {
			return SymbolFile{}, err
		}
	}
	symbols, err := tuple.Take("symbols")
	if err != nil {
		return SymbolFile{}, err
	}
	list, err := symbols.AsList()
	if err != nil {
		return SymbolFile{}, err
	}
	for _, item := range list {
		symbol, err := item.symbol()
		if err != nil {
			return SymbolFile{}, err
		}
		file.Symbols = append(file.Symbols, symbol)
	}
	return file, nil
}

func (v Value) symbol() (Symbol, error) {
	tuple, err := v.AsTuple()
	if err != nil {
		return Symbol{}, err
	}
	var symbol Symbol
	if line, ok := tuple.Lookup("line"); ok {
		if symbol.Line, err = line.Unsigned(); err != nil {
			return Symbol{}, err
		}
	}
	name, err := tuple.Take("name")
	if err != nil {
		return Symbol{}, err
	}
	if symbol.Name, err = name.AsString(); err != nil {
		return Symbol{}, err
	}
	if typeName, ok := tuple.Lookup("type"); ok {
		if symbol.TypeName, err = typeName.AsString(); err != nil {
			return Symbol{}, err
		}
	}
	if description, ok := tuple.Lookup("description"); ok {
		if symbol.Description, err = description.AsString(); err != nil {
			return Symbol{}, err
		}
	}
	return symbol, nil
}
